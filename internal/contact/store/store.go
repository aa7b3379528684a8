// Package store persists contact records. Implementations are interface-driven
// so the resolver can run against an in-memory store in tests and PostgreSQL
// in production without rewiring.
package store

import (
	"context"
	"time"

	"contactgraph/internal/contact"
	dErrors "contactgraph/pkg/domain-errors"
)

// ErrNotFound keeps storage-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "contact not found")

// Store is the contact persistence contract. All reads exclude soft-deleted
// rows and return contacts ordered by creation time, then id.
type Store interface {
	// Create inserts the contact and assigns its id. Timestamps are taken
	// from the value as given.
	Create(ctx context.Context, c *contact.Contact) error

	// FindByID returns the contact with the given id or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*contact.Contact, error)

	// FindByEmailOrPhone returns contacts matching either value. Empty
	// strings match nothing.
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) ([]contact.Contact, error)

	// FindByLinkedID returns the secondaries linked to the given primary.
	FindByLinkedID(ctx context.Context, linkedID int64) ([]contact.Contact, error)

	// FindGroup returns the whole identity group for a primary id: the
	// primary itself plus every contact whose linkedId points at it.
	FindGroup(ctx context.Context, primaryID int64) ([]contact.Contact, error)

	// FindAll returns every live contact.
	FindAll(ctx context.Context) ([]contact.Contact, error)

	// UpdateLink rewrites a contact's precedence and linkedId. Used when a
	// primary is demoted into another group and its secondaries re-pointed.
	UpdateLink(ctx context.Context, id int64, precedence contact.LinkPrecedence, linkedID *int64, now time.Time) error

	// SoftDelete stamps deletedAt, hiding the contact from all queries.
	SoftDelete(ctx context.Context, id int64, now time.Time) error
}

// TxRunner provides the transactional boundary around the resolver's
// read-decide-write sequence, closing the duplicate-primary race between
// concurrent resolves of the same pair. The PostgreSQL implementation opens a
// serializable transaction; the in-memory one takes a coarse lock.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
