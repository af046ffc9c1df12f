package repository

import (
	"context"
	"database/sql"

	"github.com/symmetrons/support-api/internal/model"
)

// AttachmentRepo provides read access to attachment rows independent
// of their owning ticket. Attachment rows are only ever written as
// part of ticket creation and only removed as part of ticket deletion,
// both handled by TicketRepo inside its transactions.
type AttachmentRepo struct {
	db *sql.DB
}

// NewAttachmentRepo returns a new AttachmentRepo bound to the given database.
func NewAttachmentRepo(db *sql.DB) *AttachmentRepo { return &AttachmentRepo{db: db} }

// ListAll returns every attachment row, newest first. It backs the
// flat admin/debug listing endpoint.
func (r *AttachmentRepo) ListAll(ctx context.Context) ([]model.TicketAttachment, error) {
	const q = `SELECT id, ticket_id, original_name, path, size_bytes, mime_type, created_at
		FROM ticket_attachments
		ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TicketAttachment, 0)
	for rows.Next() {
		var a model.TicketAttachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.OriginalName, &a.Path, &a.SizeBytes, &a.MimeType, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByTicket returns the attachments belonging to one ticket,
// oldest first.
func (r *AttachmentRepo) ListByTicket(ctx context.Context, ticketID uint64) ([]model.TicketAttachment, error) {
	const q = `SELECT id, ticket_id, original_name, path, size_bytes, mime_type, created_at
		FROM ticket_attachments
		WHERE ticket_id = ?
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TicketAttachment, 0)
	for rows.Next() {
		var a model.TicketAttachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.OriginalName, &a.Path, &a.SizeBytes, &a.MimeType, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
