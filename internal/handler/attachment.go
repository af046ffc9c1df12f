package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/symmetrons/support-api/internal/model"
)

// AttachmentLister is the read surface the attachment handler needs.
// *repository.AttachmentRepo satisfies it.
type AttachmentLister interface {
	ListAll(ctx context.Context) ([]model.TicketAttachment, error)
}

// AttachmentHandler serves the flat attachment listing used by the
// admin panel for debugging uploads.
type AttachmentHandler struct {
	Attachments AttachmentLister
	Blobs       BlobStore
}

// NewAttachmentHandler constructs an AttachmentHandler.
func NewAttachmentHandler(attachments AttachmentLister, blobs BlobStore) *AttachmentHandler {
	if attachments == nil || blobs == nil {
		panic("nil dependency passed to NewAttachmentHandler")
	}
	return &AttachmentHandler{Attachments: attachments, Blobs: blobs}
}

// List handles GET /attachments. It returns every attachment row with
// its derived public URL, newest first.
func (h *AttachmentHandler) List(c echo.Context) error {
	items, err := h.Attachments.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	for i := range items {
		items[i].URL = h.Blobs.URLFor(items[i].Path)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}
