package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactgraph/internal/contact"
	"contactgraph/internal/contact/store"
)

func int64Ptr(v int64) *int64 { return &v }

func TestFind(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)
	_, err = svc.Identify(ctxAt(baseTime.Add(time.Minute)), "b@x.com", "222")
	require.NoError(t, err)

	t.Run("no filters returns everything", func(t *testing.T) {
		contacts, err := svc.Find(context.Background(), nil, "", "")
		require.NoError(t, err)
		assert.Len(t, contacts, 2)
	})

	t.Run("by id returns single contact", func(t *testing.T) {
		contacts, err := svc.Find(context.Background(), int64Ptr(a.PrimaryContactID), "", "")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, a.PrimaryContactID, contacts[0].ID)
	})

	t.Run("id zero is not a wildcard", func(t *testing.T) {
		contacts, err := svc.Find(context.Background(), int64Ptr(0), "email-ignored@x.com", "")
		require.NoError(t, err)
		assert.Empty(t, contacts)
	})

	t.Run("unknown id returns empty", func(t *testing.T) {
		contacts, err := svc.Find(context.Background(), int64Ptr(9999), "", "")
		require.NoError(t, err)
		assert.Empty(t, contacts)
	})

	t.Run("by email matches either field", func(t *testing.T) {
		contacts, err := svc.Find(context.Background(), nil, "b@x.com", "")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "b@x.com", contacts[0].EmailValue())
	})

	t.Run("by phone matches either field", func(t *testing.T) {
		contacts, err := svc.Find(context.Background(), nil, "", "111")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, a.PrimaryContactID, contacts[0].ID)
	})
}

func TestDelete_Secondary(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)
	view, err := svc.Identify(ctxAt(baseTime.Add(time.Minute)), "a@x.com", "222")
	require.NoError(t, err)
	secondaryID := view.SecondaryContactIDs[0]

	require.NoError(t, svc.Delete(ctxAt(baseTime.Add(2*time.Minute)), secondaryID))

	contacts, err := svc.Find(context.Background(), int64Ptr(secondaryID), "", "")
	require.NoError(t, err)
	assert.Empty(t, contacts, "deleted contact must be invisible to lookups")

	remaining, err := svc.Find(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "primary survives a secondary delete")
}

func TestDelete_PrimaryCascades(t *testing.T) {
	svc, _ := newTestService(t)

	primary, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)
	_, err = svc.Identify(ctxAt(baseTime.Add(time.Minute)), "a@x.com", "222")
	require.NoError(t, err)
	_, err = svc.Identify(ctxAt(baseTime.Add(2*time.Minute)), "a@x.com", "333")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctxAt(baseTime.Add(3*time.Minute)), primary.PrimaryContactID))

	remaining, err := svc.Find(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, remaining, "deleting a primary removes its whole group")
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(ctxAt(baseTime), 12345)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDelete_Twice(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctxAt(baseTime.Add(time.Minute)), view.PrimaryContactID))
	err = svc.Delete(ctxAt(baseTime.Add(2*time.Minute)), view.PrimaryContactID)
	assert.True(t, errors.Is(err, store.ErrNotFound), "second delete reports not found")
}

func TestDelete_FreesPairForNewIdentity(t *testing.T) {
	svc, _ := newTestService(t)

	old, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctxAt(baseTime.Add(time.Minute)), old.PrimaryContactID))

	fresh, err := svc.Identify(ctxAt(baseTime.Add(2*time.Minute)), "a@x.com", "111")
	require.NoError(t, err)
	assert.NotEqual(t, old.PrimaryContactID, fresh.PrimaryContactID,
		"a deleted identity does not resurrect; the pair starts a new group")
}

func TestDelete_InvalidatesCachedViews(t *testing.T) {
	cache := &stubCache{views: map[string]*contact.ConsolidatedContact{}}
	svc, _ := newTestService(t, WithViewCache(cache))

	old, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)
	_, err = svc.Identify(ctxAt(baseTime.Add(time.Minute)), "a@x.com", "222")
	require.NoError(t, err)

	// Views cached under pairs the group never stored as one row: the known
	// subset and the single-field submissions.
	_, err = svc.Identify(ctxAt(baseTime.Add(2*time.Minute)), "a@x.com", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctxAt(baseTime.Add(3*time.Minute)), old.PrimaryContactID))
	assert.Empty(t, cache.views, "every pair of the deleted group must be purged")

	fresh, err := svc.Identify(ctxAt(baseTime.Add(4*time.Minute)), "a@x.com", "111")
	require.NoError(t, err)
	assert.NotEqual(t, old.PrimaryContactID, fresh.PrimaryContactID,
		"the cache must not serve the deleted group's view")
}

func TestDelete_SecondaryInvalidatesGroupViews(t *testing.T) {
	cache := &stubCache{views: map[string]*contact.ConsolidatedContact{}}
	svc, _ := newTestService(t, WithViewCache(cache))

	_, err := svc.Identify(ctxAt(baseTime), "a@x.com", "111")
	require.NoError(t, err)
	view, err := svc.Identify(ctxAt(baseTime.Add(time.Minute)), "a@x.com", "222")
	require.NoError(t, err)
	secondaryID := view.SecondaryContactIDs[0]

	require.NoError(t, svc.Delete(ctxAt(baseTime.Add(2*time.Minute)), secondaryID))
	assert.Empty(t, cache.views, "the surviving group's cached views changed shape and must go")

	after, err := svc.Identify(ctxAt(baseTime.Add(3*time.Minute)), "a@x.com", "111")
	require.NoError(t, err)
	assert.NotContains(t, after.SecondaryContactIDs, secondaryID)
	assert.NotContains(t, after.PhoneNumbers, "222")
}
