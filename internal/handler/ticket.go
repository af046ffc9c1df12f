package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/symmetrons/support-api/internal/model"
	"github.com/symmetrons/support-api/internal/queue"
	"github.com/symmetrons/support-api/internal/repository"
)

// TicketStore is the persistence surface the ticket handlers need.
// *repository.TicketRepo satisfies it; tests substitute an in-memory
// implementation.
type TicketStore interface {
	List(ctx context.Context, f repository.TicketFilter) (*repository.TicketPage, error)
	Create(ctx context.Context, t *model.Ticket, attachments []model.TicketAttachment) error
	UpdateFields(ctx context.Context, id uint64, u repository.TicketUpdate) (*model.Ticket, error)
	Resolve(ctx context.Context, id uint64) (*model.Ticket, error)
	Delete(ctx context.Context, id uint64) ([]string, error)
	Stats(ctx context.Context) (*repository.TicketStats, error)
}

// BlobStore is the attachment blob surface. *storage.DiskStore
// satisfies it.
type BlobStore interface {
	Save(data []byte, mimeType string) (string, error)
	URLFor(key string) string
	Delete(key string) error
}

// TicketHandler serves the ticket REST endpoints. Publish and
// Invalidate are optional hooks: Publish emits lifecycle events to the
// message broker, Invalidate drops cached responses after a mutation.
// Both failures are logged, never surfaced to the client.
type TicketHandler struct {
	Tickets        TicketStore
	Blobs          BlobStore
	MaxUploadBytes int64
	Publish        func(ctx context.Context, ev queue.TicketEvent) error
	Invalidate     func(ctx context.Context)
}

// NewTicketHandler constructs a TicketHandler. Tickets and Blobs must
// be non-nil; the hooks may be nil.
func NewTicketHandler(tickets TicketStore, blobs BlobStore, maxUploadBytes int64) *TicketHandler {
	if tickets == nil || blobs == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets, Blobs: blobs, MaxUploadBytes: maxUploadBytes}
}

// List handles GET /tickets. Filters are optional and combine with AND
// semantics; legacy status spellings are normalized at this boundary so
// old clients keep working against the canonical vocabulary. The
// response uses the paginator envelope the front-ends consume:
// data, current_page, last_page, per_page, total.
func (h *TicketHandler) List(c echo.Context) error {
	f := repository.TicketFilter{
		Priority:   c.QueryParam("priority"),
		Department: c.QueryParam("department"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", repository.DefaultPageSize),
	}
	if s := c.QueryParam("status"); s != "" {
		if canonical, ok := model.NormalizeStatus(s); ok {
			f.Status = canonical
		} else {
			f.Status = s // unknown value matches nothing
		}
	}

	page, err := h.Tickets.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	for i := range page.Items {
		h.fillURLs(&page.Items[i])
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":         page.Items,
		"current_page": page.Page,
		"last_page":    repository.LastPage(page.Total, page.PageSize),
		"per_page":     page.PageSize,
		"total":        page.Total,
	})
}

// Stats handles GET /tickets/stats.
func (h *TicketHandler) Stats(c echo.Context) error {
	stats, err := h.Tickets.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Create handles POST /tickets (multipart). Every attached file must
// pass the size cap and be stored before any row is written; if either
// blob storage or the database insert fails, blobs already saved for
// this request are removed again so a ticket never exists with a
// missing file, and a failed request leaves nothing behind.
func (h *TicketHandler) Create(c echo.Context) error {
	t := &model.Ticket{
		Subject:    c.FormValue("subject"),
		Department: c.FormValue("department"),
		Priority:   c.FormValue("priority"),
	}
	if d := c.FormValue("description"); d != "" {
		t.Description = &d
	}
	// Validate before touching the blob store so an invalid request
	// never writes a file.
	if err := model.ValidateNew(t); err != nil {
		return writeError(c, err)
	}

	files := formFiles(c)
	for _, fh := range files {
		if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
			return writeError(c, &model.ValidationError{
				Field:   "attachments",
				Message: "attachment " + fh.Filename + " exceeds the maximum size of " + strconv.FormatInt(h.MaxUploadBytes, 10) + " bytes",
			})
		}
	}

	saved := []string{}
	rollback := func() {
		for _, key := range saved {
			if err := h.Blobs.Delete(key); err != nil {
				log.Printf("ticket create: rollback blob %s: %v", key, err)
			}
		}
	}

	attachments := make([]model.TicketAttachment, 0, len(files))
	for _, fh := range files {
		data, mimeType, err := readUpload(fh)
		if err != nil {
			rollback()
			return writeError(c, err)
		}
		key, err := h.Blobs.Save(data, mimeType)
		if err != nil {
			rollback()
			return writeError(c, err)
		}
		saved = append(saved, key)
		attachments = append(attachments, model.TicketAttachment{
			OriginalName: fh.Filename,
			Path:         key,
			SizeBytes:    fh.Size,
			MimeType:     mimeType,
		})
	}

	if err := h.Tickets.Create(c.Request().Context(), t, attachments); err != nil {
		rollback()
		return writeError(c, err)
	}
	h.fillURLs(t)
	h.afterMutation(c, queue.EventTicketCreated, t)
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT /tickets/:id with a partial JSON body of status,
// priority and department. Unknown JSON fields are ignored; an empty
// body is a no-op that still returns the ticket.
func (h *TicketHandler) Update(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var body struct {
		Status     *string `json:"status"`
		Priority   *string `json:"priority"`
		Department *string `json:"department"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	t, err := h.Tickets.UpdateFields(c.Request().Context(), id, repository.TicketUpdate{
		Status:     body.Status,
		Priority:   body.Priority,
		Department: body.Department,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.fillURLs(t)
	h.afterMutation(c, "", nil)
	return c.JSON(http.StatusOK, t)
}

// Resolve handles POST /tickets/:id/resolve.
func (h *TicketHandler) Resolve(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	t, err := h.Tickets.Resolve(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	h.fillURLs(t)
	h.afterMutation(c, queue.EventTicketResolved, t)
	return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /tickets/:id. Rows are removed first, in one
// transaction; the backing blobs are deleted afterwards best-effort.
// A blob that fails to delete is logged and skipped: an orphaned file
// is preferable to an undeletable ticket.
func (h *TicketHandler) Delete(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	paths, err := h.Tickets.Delete(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	for _, p := range paths {
		if err := h.Blobs.Delete(p); err != nil {
			log.Printf("ticket delete: blob %s: %v", p, err)
		}
	}
	h.afterMutation(c, queue.EventTicketDeleted, &model.Ticket{ID: id})
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Ticket and its attachments deleted successfully.",
	})
}

// fillURLs derives the public URL for every attachment of a ticket.
func (h *TicketHandler) fillURLs(t *model.Ticket) {
	for i := range t.Attachments {
		t.Attachments[i].URL = h.Blobs.URLFor(t.Attachments[i].Path)
	}
}

// afterMutation invalidates cached responses and, when eventType is
// set, publishes a lifecycle event. Neither failure affects the reply.
func (h *TicketHandler) afterMutation(c echo.Context, eventType string, t *model.Ticket) {
	ctx := c.Request().Context()
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
	if h.Publish != nil && eventType != "" && t != nil {
		if err := h.Publish(ctx, queue.NewTicketEvent(eventType, t)); err != nil {
			log.Printf("publish %s for ticket %d: %v", eventType, t.ID, err)
		}
	}
}

// ticketID parses the :id path parameter.
func ticketID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid ticket id")
	}
	return id, nil
}

// queryInt parses an integer query parameter, falling back to a
// default when missing or malformed.
func queryInt(c echo.Context, key string, def int) int {
	v := c.QueryParam(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// formFiles collects uploaded files from the multipart form under both
// field spellings the front-ends use.
func formFiles(c echo.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	files := form.File["attachments"]
	files = append(files, form.File["attachments[]"]...)
	return files
}

// readUpload reads one uploaded file fully and determines its mime
// type from the part header, sniffing the content when absent.
func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// writeError translates an error into the JSON error envelope.
// Validation problems map to 422, unknown tickets to 404, everything
// else to a logged 500.
func writeError(c echo.Context, err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": ve.Message})
	}
	if errors.Is(err, repository.ErrTicketNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	}
	log.Printf("ticket handler: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
