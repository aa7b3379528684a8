package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contactgraph/internal/contact"
	dErrors "contactgraph/pkg/domain-errors"
	txcontext "contactgraph/pkg/platform/tx"
)

// Schema creates the contacts table and the indexes backing the resolver's
// match query and the group query used by the view builder.
const Schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	phone_number TEXT,
	email TEXT,
	linked_id BIGINT REFERENCES contacts (id),
	link_precedence TEXT NOT NULL CHECK (link_precedence IN ('primary', 'secondary')),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts (email) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts (phone_number) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts (linked_id) WHERE deleted_at IS NULL;
`

const contactColumns = `id, phone_number, email, linked_id, link_precedence, created_at, updated_at, deleted_at`

// PostgresStore persists contacts in PostgreSQL. When a transaction is present
// in the context (see PostgresTxRunner) all statements run inside it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed contact store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c *contact.Contact) error {
	const query = `INSERT INTO contacts (phone_number, email, linked_id, link_precedence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		c.PhoneNumber, c.Email, c.LinkedID, string(c.LinkPrecedence), c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*contact.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND deleted_at IS NULL`
	row := s.execer(ctx).QueryRowContext(ctx, query, id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find contact by id: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) ([]contact.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE deleted_at IS NULL
		AND (($1 <> '' AND email = $1) OR ($2 <> '' AND phone_number = $2))
		ORDER BY created_at, id`
	return s.queryContacts(ctx, query, email, phoneNumber)
}

func (s *PostgresStore) FindByLinkedID(ctx context.Context, linkedID int64) ([]contact.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE linked_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`
	return s.queryContacts(ctx, query, linkedID)
}

func (s *PostgresStore) FindGroup(ctx context.Context, primaryID int64) ([]contact.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE (id = $1 OR linked_id = $1) AND deleted_at IS NULL
		ORDER BY created_at, id`
	return s.queryContacts(ctx, query, primaryID)
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]contact.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE deleted_at IS NULL
		ORDER BY created_at, id`
	return s.queryContacts(ctx, query)
}

func (s *PostgresStore) UpdateLink(ctx context.Context, id int64, precedence contact.LinkPrecedence, linkedID *int64, now time.Time) error {
	const query = `UPDATE contacts SET link_precedence = $1, linked_id = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL`
	result, err := s.execer(ctx).ExecContext(ctx, query, string(precedence), linkedID, now, id)
	if err != nil {
		return fmt.Errorf("update contact link: %w", err)
	}
	return oneRowAffected(result)
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	const query = `UPDATE contacts SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`
	result, err := s.execer(ctx).ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("soft delete contact: %w", err)
	}
	return oneRowAffected(result)
}

func (s *PostgresStore) queryContacts(ctx context.Context, query string, args ...any) ([]contact.Contact, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]contact.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*contact.Contact, error) {
	var (
		c          contact.Contact
		phone      sql.NullString
		email      sql.NullString
		linkedID   sql.NullInt64
		precedence string
		deletedAt  sql.NullTime
	)
	if err := row.Scan(&c.ID, &phone, &email, &linkedID, &precedence, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if phone.Valid {
		c.PhoneNumber = &phone.String
	}
	if email.Valid {
		c.Email = &email.String
	}
	if linkedID.Valid {
		c.LinkedID = &linkedID.Int64
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	c.LinkPrecedence = contact.LinkPrecedence(precedence)
	return &c, nil
}

func oneRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresTxRunner wraps resolver work in a serializable transaction so two
// concurrent resolves of the same pair cannot both observe "no match" and
// create competing primaries. The transaction is placed in the context for
// PostgresStore to pick up.
type PostgresTxRunner struct {
	db *sql.DB
}

// NewPostgresTxRunner creates the serializable transaction runner.
func NewPostgresTxRunner(db *sql.DB) *PostgresTxRunner {
	return &PostgresTxRunner{db: db}
}

func (t *PostgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
