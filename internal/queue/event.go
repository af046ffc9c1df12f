// Package queue defines the ticket lifecycle events exchanged over the
// message broker and the background consumer that records them.
package queue

import (
	"time"

	"github.com/symmetrons/support-api/internal/model"
)

// TicketEventsQueue is the durable queue lifecycle events are
// published to and consumed from.
const TicketEventsQueue = "ticket.events"

// Event types carried in TicketEvent.Type.
const (
	EventTicketCreated  = "ticket.created"
	EventTicketResolved = "ticket.resolved"
	EventTicketDeleted  = "ticket.deleted"
)

// TicketEvent is published whenever a ticket is created, resolved or
// deleted. It carries enough information for downstream consumers to
// log or trigger follow-up work without querying the primary database.
// For deletions only Type, TicketID and OccurredAt are meaningful.
type TicketEvent struct {
	Type        string `json:"type"`
	TicketID    uint64 `json:"ticket_id"`
	Subject     string `json:"subject,omitempty"`
	Department  string `json:"department,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	Attachments int    `json:"attachments"`
	OccurredAt  string `json:"occurred_at"`
}

// NewTicketEvent builds an event of the given type from a ticket
// snapshot, stamped with the current UTC time.
func NewTicketEvent(eventType string, t *model.Ticket) TicketEvent {
	return TicketEvent{
		Type:        eventType,
		TicketID:    t.ID,
		Subject:     t.Subject,
		Department:  t.Department,
		Priority:    t.Priority,
		Status:      t.Status,
		Attachments: len(t.Attachments),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
