// Package contact defines the contact identity domain model. A contact is one
// observed (email, phoneNumber) pair; contacts sharing either field are linked
// into a group with exactly one primary and any number of secondaries.
package contact

import "time"

// LinkPrecedence marks a contact's role within its identity group.
type LinkPrecedence string

const (
	LinkPrecedencePrimary   LinkPrecedence = "primary"
	LinkPrecedenceSecondary LinkPrecedence = "secondary"
)

// Contact is the sole persisted entity. Email and PhoneNumber are nullable;
// the resolver never creates a contact with both absent. LinkedID is set only
// on secondaries and points at the group's primary. DeletedAt implements soft
// deletion: deleted rows are invisible to every query.
type Contact struct {
	ID             int64          `json:"id"`
	PhoneNumber    *string        `json:"phoneNumber,omitempty"`
	Email          *string        `json:"email,omitempty"`
	LinkedID       *int64         `json:"linkedId,omitempty"`
	LinkPrecedence LinkPrecedence `json:"linkPrecedence"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      *time.Time     `json:"deletedAt,omitempty"`
}

// IsPrimary reports whether the contact heads its identity group.
func (c Contact) IsPrimary() bool {
	return c.LinkPrecedence == LinkPrecedencePrimary
}

// EmailValue returns the email or "" when absent.
func (c Contact) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone number or "" when absent.
func (c Contact) PhoneValue() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}

// ConsolidatedContact is the merged view of one identity group: the primary's
// id, every known email and phone (primary's values first, deduplicated), and
// the ids of all secondaries in creation order.
type ConsolidatedContact struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}
