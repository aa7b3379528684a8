package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"contactgraph/internal/contact"
)

// MemoryStore is a mutex-guarded map store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	contacts map[int64]contact.Contact
}

// NewMemoryStore creates an empty in-memory contact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, contacts: make(map[int64]contact.Contact)}
}

func (s *MemoryStore) Create(_ context.Context, c *contact.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID
	s.nextID++
	s.contacts[c.ID] = *c
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*contact.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok || c.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) FindByEmailOrPhone(_ context.Context, email, phoneNumber string) ([]contact.Contact, error) {
	return s.filter(func(c contact.Contact) bool {
		return (email != "" && c.EmailValue() == email) ||
			(phoneNumber != "" && c.PhoneValue() == phoneNumber)
	}), nil
}

func (s *MemoryStore) FindByLinkedID(_ context.Context, linkedID int64) ([]contact.Contact, error) {
	return s.filter(func(c contact.Contact) bool {
		return c.LinkedID != nil && *c.LinkedID == linkedID
	}), nil
}

func (s *MemoryStore) FindGroup(_ context.Context, primaryID int64) ([]contact.Contact, error) {
	return s.filter(func(c contact.Contact) bool {
		return c.ID == primaryID || (c.LinkedID != nil && *c.LinkedID == primaryID)
	}), nil
}

func (s *MemoryStore) FindAll(_ context.Context) ([]contact.Contact, error) {
	return s.filter(func(contact.Contact) bool { return true }), nil
}

func (s *MemoryStore) UpdateLink(_ context.Context, id int64, precedence contact.LinkPrecedence, linkedID *int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.DeletedAt != nil {
		return ErrNotFound
	}
	c.LinkPrecedence = precedence
	c.LinkedID = linkedID
	c.UpdatedAt = now
	s.contacts[id] = c
	return nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.DeletedAt != nil {
		return ErrNotFound
	}
	deletedAt := now
	c.DeletedAt = &deletedAt
	c.UpdatedAt = now
	s.contacts[id] = c
	return nil
}

// filter returns live contacts matching pred, ordered by creation time then id
// to mirror the SQL store's ordering.
func (s *MemoryStore) filter(pred func(contact.Contact) bool) []contact.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]contact.Contact, 0)
	for _, c := range s.contacts {
		if c.DeletedAt == nil && pred(c) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// MemoryTxRunner serializes resolver transactions over the in-memory store
// with a single coarse lock. Identity groups can span arbitrary keys, so
// finer-grained locking has no safe shard dimension.
type MemoryTxRunner struct {
	mu sync.Mutex
}

// NewMemoryTxRunner creates the coarse-lock transaction runner.
func NewMemoryTxRunner() *MemoryTxRunner {
	return &MemoryTxRunner{}
}

func (t *MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
