package service

import (
	"context"
	"errors"

	"contactgraph/internal/audit"
	"contactgraph/internal/contact"
	"contactgraph/internal/contact/store"
	dErrors "contactgraph/pkg/domain-errors"
	"contactgraph/pkg/requestcontext"
)

// Find resolves a lookup query to raw contact records. An id, when given,
// takes precedence; ids below 1 can never match and return an empty list
// rather than falling through to "all". With no filters at all, every live
// contact is returned.
func (s *Service) Find(ctx context.Context, id *int64, email, phoneNumber string) ([]contact.Contact, error) {
	switch {
	case id != nil:
		if *id <= 0 {
			return []contact.Contact{}, nil
		}
		c, err := s.store.FindByID(ctx, *id)
		if errors.Is(err, store.ErrNotFound) {
			return []contact.Contact{}, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find contact by id")
		}
		return []contact.Contact{*c}, nil

	case email != "" || phoneNumber != "":
		contacts, err := s.store.FindByEmailOrPhone(ctx, email, phoneNumber)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find contacts by email or phone")
		}
		return contacts, nil

	default:
		contacts, err := s.store.FindAll(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list contacts")
		}
		return contacts, nil
	}
}

// Delete soft-deletes the contact with the given id. Deleting a primary
// cascades to its secondaries in the same transaction so no contact is left
// pointing at a deleted primary. Returns store.ErrNotFound when the id does
// not exist or was already deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var events []audit.Event
	var group []contact.Contact
	err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx).UTC()

		c, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}

		// Snapshot the whole group before any row disappears; its values name
		// every cache key that can resolve to this group.
		rootID := c.ID
		if !c.IsPrimary() && c.LinkedID != nil {
			rootID = *c.LinkedID
		}
		group, err = s.store.FindGroup(ctx, rootID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load identity group")
		}

		if c.IsPrimary() {
			secondaries, err := s.store.FindByLinkedID(ctx, id)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "load secondaries")
			}
			for _, sec := range secondaries {
				if err := s.store.SoftDelete(ctx, sec.ID, now); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "cascade delete secondary")
				}
				events = append(events, audit.Event{
					Action:    audit.ActionContactDeleted,
					ContactID: sec.ID,
				})
			}
		}

		if err := s.store.SoftDelete(ctx, id, now); err != nil {
			return err
		}
		events = append(events, audit.Event{
			Action:    audit.ActionContactDeleted,
			ContactID: id,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		for _, event := range events {
			s.audit.Emit(ctx, event)
		}
	}
	for range events {
		s.metrics.IncContactsDeleted()
	}
	s.invalidateGroupViews(ctx, group)
	return nil
}

// invalidateGroupViews purges every cached pair that can resolve to the group.
// Any pair cached against the group carries an email and phone the group knew
// at the time (new values are inserted before the view is cached), so the
// cross product of the group's values, absent fields included, covers all
// keys.
func (s *Service) invalidateGroupViews(ctx context.Context, group []contact.Contact) {
	if s.cache == nil || len(group) == 0 {
		return
	}

	emails := map[string]struct{}{"": {}}
	phones := map[string]struct{}{"": {}}
	for _, c := range group {
		emails[c.EmailValue()] = struct{}{}
		phones[c.PhoneValue()] = struct{}{}
	}

	for email := range emails {
		for phone := range phones {
			if email == "" && phone == "" {
				continue
			}
			s.cache.Invalidate(ctx, email, phone)
		}
	}
}
