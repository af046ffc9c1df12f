package model

import (
	"fmt"
	"strings"
	"time"
)

// Ticket statuses. The canonical vocabulary matches the backend store;
// the old prototype spellings ("new", "in-progress") are accepted on the
// way in via NormalizeStatus and never stored.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Ticket priorities, lowest to highest.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// statusAliases maps legacy client spellings onto the canonical set.
var statusAliases = map[string]string{
	"new":         StatusOpen,
	"in-progress": StatusInProgress,
}

var validStatuses = map[string]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusResolved:   true,
	StatusClosed:     true,
}

var validPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Ticket is a support request filed by a user. A ticket owns zero or
// more attachments; deleting the ticket removes them as well.
//
// Fields:
//  ID          – primary key identifier, assigned by the database.
//  Subject     – short summary, required.
//  Description – free-form detail, optional.
//  Department  – category the request is routed to (e.g. "IT Support").
//  Priority    – one of low/medium/high/urgent.
//  Status      – one of open/in_progress/resolved/closed.
//  CreatedAt   – set once at creation.
//  ResolvedAt  – set by the resolve operation; nil until then.
type Ticket struct {
	ID          uint64             `json:"id"`
	Subject     string             `json:"subject"`
	Description *string            `json:"description"`
	Department  string             `json:"department"`
	Priority    string             `json:"priority"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	ResolvedAt  *time.Time         `json:"resolved_at"`
	Attachments []TicketAttachment `json:"attachments"`
}

// TicketAttachment records one uploaded file belonging to a ticket. The
// stored path is a server-generated key and is never derived from the
// client-supplied filename; OriginalName is kept only for display.
type TicketAttachment struct {
	ID           uint64    `json:"id"`
	TicketID     uint64    `json:"ticket_id"`
	OriginalName string    `json:"original_name"`
	Path         string    `json:"path"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url,omitempty"`
}

// ValidationError reports a rejected input field. Handlers translate it
// into a 422 response with the message in the error envelope.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeStatus lower-cases and trims a status value, maps legacy
// aliases onto the canonical set, and reports whether the result is a
// valid status. The prototype's "pr" value has no defensible mapping
// and is rejected like any other unknown value.
func NormalizeStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := statusAliases[s]; ok {
		return canonical, true
	}
	return s, validStatuses[s]
}

// NormalizePriority lower-cases and trims a priority value and reports
// whether it belongs to the closed priority set.
func NormalizePriority(p string) (string, bool) {
	p = strings.ToLower(strings.TrimSpace(p))
	return p, validPriorities[p]
}

// ValidateNew checks the fields of a ticket about to be created and
// normalizes Priority in place. Status and timestamps are assigned by
// the repository, not the caller.
func ValidateNew(t *Ticket) error {
	if strings.TrimSpace(t.Subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required"}
	}
	if len(t.Subject) > 255 {
		return &ValidationError{Field: "subject", Message: "subject must be at most 255 characters"}
	}
	if strings.TrimSpace(t.Department) == "" {
		return &ValidationError{Field: "department", Message: "department is required"}
	}
	if len(t.Department) > 100 {
		return &ValidationError{Field: "department", Message: "department must be at most 100 characters"}
	}
	p, ok := NormalizePriority(t.Priority)
	if !ok {
		return &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high, urgent"}
	}
	t.Priority = p
	return nil
}
