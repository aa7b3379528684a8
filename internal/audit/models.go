// Package audit records contact lifecycle events. Events are emitted
// fire-and-forget from the resolver, buffered on a channel, and drained by a
// worker into a sink (in-memory for tests, Kafka in production).
package audit

import (
	"context"
	"time"
)

// Action identifies what happened to a contact.
type Action string

const (
	ActionContactCreated Action = "contact_created"
	ActionContactLinked  Action = "contact_linked"
	ActionPrimaryDemoted Action = "primary_demoted"
	ActionContactDeleted Action = "contact_deleted"
)

// Event is one audit record. LinkedToID is set for link and demote actions
// and names the surviving primary.
type Event struct {
	ID          string    `json:"id"`
	Action      Action    `json:"action"`
	ContactID   int64     `json:"contactId"`
	LinkedToID  int64     `json:"linkedToId,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is the audit sink contract. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}
