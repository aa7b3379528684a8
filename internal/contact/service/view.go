package service

import (
	"context"

	"contactgraph/internal/contact"
	dErrors "contactgraph/pkg/domain-errors"
	pstrings "contactgraph/pkg/platform/strings"
)

// buildView assembles the consolidated view for a primary via the indexed
// group query. The primary's email and phone lead their lists; the rest
// follow in creation order, deduplicated.
func (s *Service) buildView(ctx context.Context, primaryID int64) (*contact.ConsolidatedContact, error) {
	group, err := s.store.FindGroup(ctx, primaryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load identity group")
	}

	emails := make([]string, 0, len(group))
	phoneNumbers := make([]string, 0, len(group))
	secondaryIDs := make([]int64, 0, len(group))

	for _, c := range group {
		if c.ID == primaryID {
			emails = append(emails, c.EmailValue())
			phoneNumbers = append(phoneNumbers, c.PhoneValue())
			break
		}
	}
	for _, c := range group {
		if c.ID == primaryID {
			continue
		}
		emails = append(emails, c.EmailValue())
		phoneNumbers = append(phoneNumbers, c.PhoneValue())
		secondaryIDs = append(secondaryIDs, c.ID)
	}

	return &contact.ConsolidatedContact{
		PrimaryContactID:    primaryID,
		Emails:              pstrings.Dedupe(emails),
		PhoneNumbers:        pstrings.Dedupe(phoneNumbers),
		SecondaryContactIDs: secondaryIDs,
	}, nil
}
