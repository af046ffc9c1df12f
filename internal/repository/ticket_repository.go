package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/symmetrons/support-api/internal/model"
)

// Pagination bounds for ticket listing. PageSize falls back to
// DefaultPageSize when unset and is capped at MaxPageSize so a single
// request can never read an unbounded number of rows.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TicketRepo provides CRUD and query operations for tickets and their
// attachment rows. Multi-step writes (create with attachments, cascade
// delete) run inside a single transaction so a mid-operation failure
// never leaves a ticket with a subset of its attachments recorded.
// All timestamps are stored in UTC.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying handle for callers that need to coordinate
// their own transactions.
func (r *TicketRepo) DB() *sql.DB { return r.db }

// TicketFilter defines the exact-match filters and pagination for
// listing tickets. Empty filter fields are ignored; set fields combine
// with AND semantics.
type TicketFilter struct {
	Status     string
	Priority   string
	Department string
	Page       int
	PageSize   int
}

// Normalized returns a copy of the filter with page and page size
// clamped to valid bounds.
func (f TicketFilter) Normalized() TicketFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// whereClause builds the WHERE condition and arguments shared by the
// count and page queries.
func (f TicketFilter) whereClause() (string, []any) {
	conds := []string{}
	args := []any{}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, f.Priority)
	}
	if f.Department != "" {
		conds = append(conds, "department = ?")
		args = append(args, f.Department)
	}
	if len(conds) == 0 {
		return "1=1", args
	}
	return strings.Join(conds, " AND "), args
}

// TicketPage is one page of a filtered ticket listing together with
// the total count of matching rows at query time.
type TicketPage struct {
	Items    []model.Ticket
	Total    int64
	Page     int
	PageSize int
}

// LastPage returns the number of the final page for a total row count
// and page size. An empty result still has one (empty) page.
func LastPage(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// TicketUpdate carries a partial update of the mutable classification
// fields. Nil fields are left untouched.
type TicketUpdate struct {
	Status     *string
	Priority   *string
	Department *string
}

// TicketStats aggregates counts for the dashboard. Open counts tickets
// in {open, in_progress}. ResolvedToday counts tickets whose
// resolved_at falls on the current server-local calendar day. Urgent
// counts urgent-priority tickets regardless of status, so a resolved
// urgent ticket appears in both Urgent and Total but not Open; the
// overlap is part of the contract.
type TicketStats struct {
	Total         int64 `json:"total"`
	Open          int64 `json:"open"`
	ResolvedToday int64 `json:"resolved_today"`
	Urgent        int64 `json:"urgent"`
}

const ticketColumns = "id, subject, description, department, priority, status, created_at, resolved_at"

// scanTicket reads one ticket row from the given scanner.
func scanTicket(scan func(dest ...any) error) (*model.Ticket, error) {
	var t model.Ticket
	var desc sql.NullString
	var resolvedAt sql.NullTime
	if err := scan(&t.ID, &t.Subject, &desc, &t.Department, &t.Priority, &t.Status, &t.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		t.Description = &d
	}
	if resolvedAt.Valid {
		at := resolvedAt.Time
		t.ResolvedAt = &at
	}
	t.Attachments = []model.TicketAttachment{}
	return &t, nil
}

// List returns one page of tickets matching the filter, newest first,
// with attachments populated. When no rows match it returns an empty
// page, not an error. Total always reflects the filtered count at the
// time of the query.
func (r *TicketRepo) List(ctx context.Context, f TicketFilter) (*TicketPage, error) {
	f = f.Normalized()
	cond, args := f.whereClause()

	var total int64
	countSQL := `SELECT COUNT(*) FROM tickets WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := f.PageSize
	offset := (f.Page - 1) * f.PageSize

	dataSQL := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE ` + cond + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	dataArgs := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Ticket, 0, limit)
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachToTickets(ctx, items); err != nil {
		return nil, err
	}
	return &TicketPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// GetByID returns a single ticket with its attachments, or
// ErrTicketNotFound when the id is unknown.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	list := []model.Ticket{*t}
	if err := r.attachToTickets(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create validates the ticket fields, then inserts the ticket row and
// all attachment rows in one transaction. On success the ticket's ID,
// Status, CreatedAt and Attachments are populated. Attachment blobs
// must already be stored; the caller owns their cleanup if this fails.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket, attachments []model.TicketAttachment) error {
	if err := model.ValidateNew(t); err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const insTicket = `INSERT INTO tickets (subject, description, department, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insTicket, t.Subject, t.Description, t.Department, t.Priority, model.StatusOpen, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.StatusOpen
	t.CreatedAt = now
	t.ResolvedAt = nil

	const insAtt = `INSERT INTO ticket_attachments (ticket_id, original_name, path, size_bytes, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	t.Attachments = make([]model.TicketAttachment, 0, len(attachments))
	for _, a := range attachments {
		res, err := tx.ExecContext(ctx, insAtt, t.ID, a.OriginalName, a.Path, a.SizeBytes, a.MimeType, now)
		if err != nil {
			return err
		}
		aid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a.ID = uint64(aid)
		a.TicketID = t.ID
		a.CreatedAt = now
		t.Attachments = append(t.Attachments, a)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateFields applies a partial update of status, priority and
// department and returns the updated ticket. Enum fields are validated
// and normalized before any write. To keep resolved_at consistent with
// the status column, moving a ticket into resolved stamps resolved_at
// when it is still null, and moving it out of resolved clears it.
func (r *TicketRepo) UpdateFields(ctx context.Context, id uint64, u TicketUpdate) (*model.Ticket, error) {
	sets := []string{}
	args := []any{}
	if u.Status != nil {
		s, ok := model.NormalizeStatus(*u.Status)
		if !ok {
			return nil, &model.ValidationError{Field: "status", Message: "status must be one of open, in_progress, resolved, closed"}
		}
		sets = append(sets, "status = ?")
		args = append(args, s)
		if s == model.StatusResolved {
			sets = append(sets, "resolved_at = COALESCE(resolved_at, ?)")
			args = append(args, time.Now().UTC().Truncate(time.Second))
		} else {
			sets = append(sets, "resolved_at = NULL")
		}
	}
	if u.Priority != nil {
		p, ok := model.NormalizePriority(*u.Priority)
		if !ok {
			return nil, &model.ValidationError{Field: "priority", Message: "priority must be one of low, medium, high, urgent"}
		}
		sets = append(sets, "priority = ?")
		args = append(args, p)
	}
	if u.Department != nil {
		d := strings.TrimSpace(*u.Department)
		if d == "" {
			return nil, &model.ValidationError{Field: "department", Message: "department cannot be empty"}
		}
		if len(d) > 100 {
			return nil, &model.ValidationError{Field: "department", Message: "department must be at most 100 characters"}
		}
		sets = append(sets, "department = ?")
		args = append(args, d)
	}
	if len(sets) > 0 {
		q := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		args = append(args, id)
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Resolve sets status to resolved and stamps resolved_at, then returns
// the updated ticket. Resolving an already-resolved ticket refreshes
// resolved_at; the operation is idempotent on status.
func (r *TicketRepo) Resolve(ctx context.Context, id uint64) (*model.Ticket, error) {
	const q = `UPDATE tickets SET status = ?, resolved_at = ? WHERE id = ?`
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := r.db.ExecContext(ctx, q, model.StatusResolved, now, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the ticket's attachment rows and the ticket row in a
// single transaction and returns the storage paths of the removed
// attachments so the caller can delete the backing blobs. Blob cleanup
// is deliberately left outside the transaction: a failed file delete
// must never resurrect the ticket.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const pathQ = `SELECT path FROM ticket_attachments WHERE ticket_id = ?`
	rows, err := tx.QueryContext(ctx, pathQ, id)
	if err != nil {
		return nil, err
	}
	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_attachments WHERE ticket_id = ?`, id); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTicketNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return paths, nil
}

// Stats returns the dashboard counters in a single aggregate query.
func (r *TicketRepo) Stats(ctx context.Context) (*TicketStats, error) {
	const q = `SELECT
			COUNT(*),
			COALESCE(SUM(status IN ('open', 'in_progress')), 0),
			COALESCE(SUM(resolved_at IS NOT NULL AND DATE(resolved_at) = CURDATE()), 0),
			COALESCE(SUM(priority = 'urgent'), 0)
		FROM tickets`
	var s TicketStats
	if err := r.db.QueryRowContext(ctx, q).Scan(&s.Total, &s.Open, &s.ResolvedToday, &s.Urgent); err != nil {
		return nil, err
	}
	return &s, nil
}

// attachToTickets loads the attachments for every ticket in the slice
// with one IN query and appends them to their owners in order.
func (r *TicketRepo) attachToTickets(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]any, 0, len(tickets))
	placeholders := make([]string, 0, len(tickets))
	index := make(map[uint64]int, len(tickets))
	for i := range tickets {
		ids = append(ids, tickets[i].ID)
		placeholders = append(placeholders, "?")
		index[tickets[i].ID] = i
	}
	q := `SELECT id, ticket_id, original_name, path, size_bytes, mime_type, created_at
		FROM ticket_attachments
		WHERE ticket_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY ticket_id, id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.TicketAttachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.OriginalName, &a.Path, &a.SizeBytes, &a.MimeType, &a.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[a.TicketID]; ok {
			tickets[i].Attachments = append(tickets[i].Attachments, a)
		}
	}
	return rows.Err()
}
