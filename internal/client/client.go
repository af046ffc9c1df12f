package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/symmetrons/support-api/internal/model"
)

// TicketPage is one page of the ticket list as returned by the server.
type TicketPage struct {
	Data        []model.Ticket `json:"data"`
	CurrentPage int            `json:"current_page"`
	LastPage    int            `json:"last_page"`
	PerPage     int            `json:"per_page"`
	Total       int64          `json:"total"`
}

// Stats mirrors the dashboard counters endpoint.
type Stats struct {
	Total         int64 `json:"total"`
	Open          int64 `json:"open"`
	ResolvedToday int64 `json:"resolved_today"`
	Urgent        int64 `json:"urgent"`
}

// File is one attachment to upload with a new ticket.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// CreateTicket carries the fields for filing a new ticket.
type CreateTicket struct {
	Subject     string
	Department  string
	Priority    string
	Description string
	Files       []File
}

// UpdateTicket carries a partial update; nil fields are not sent.
type UpdateTicket struct {
	Status     *string
	Priority   *string
	Department *string
}

// DeleteResult is the server's response to a delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the ticket API. List responses are cached keyed by
// the full canonical parameter string, so two different filter sets
// can never serve each other's data. Any mutation bumps an internal
// generation counter: cached pages are dropped, and a list response
// that was requested before the bump is discarded instead of cached
// (last-request-wins by request identity, not arrival order). While a
// refresh for a known key is in flight, callers keep getting the
// cached previous page rather than an empty loading state.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.Mutex
	gen   uint64
	cache map[string]*TicketPage
}

// New returns a Client for the API at baseURL. httpc may be nil, in
// which case a client with a 30 second timeout is used.
func New(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		cache:   map[string]*TicketPage{},
	}
}

// Cached returns the cached page for a query, if any. It never does
// I/O; render loops use it to keep showing stale-but-valid data while
// List refreshes in the background.
func (c *Client) Cached(q Query) (*TicketPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, ok := c.cache[q.Key()]
	return page, ok
}

// List fetches one page of tickets for the query, serving from cache
// when the parameter set was fetched since the last mutation.
func (c *Client) List(ctx context.Context, q Query) (*TicketPage, error) {
	key := q.Key()

	c.mu.Lock()
	if page, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return page, nil
	}
	startGen := c.gen
	c.mu.Unlock()

	var page TicketPage
	if err := c.get(ctx, "/tickets?"+key, &page); err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Only cache if no mutation happened while the request was in
	// flight; a superseded response is returned to its caller but must
	// not shadow fresher data for later reads.
	if c.gen == startGen {
		c.cache[key] = &page
	}
	c.mu.Unlock()
	return &page, nil
}

// Stats fetches the dashboard counters. Stats are not cached; the
// server already caches this aggregate.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.get(ctx, "/tickets/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create files a new ticket with optional attachments and invalidates
// cached list pages on success.
func (c *Client) Create(ctx context.Context, in CreateTicket) (*model.Ticket, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fields := map[string]string{
		"subject":    in.Subject,
		"department": in.Department,
		"priority":   in.Priority,
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, f := range in.Files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename=%q`, f.Name))
		if f.MimeType != "" {
			hdr.Set("Content-Type", f.MimeType)
		}
		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var t model.Ticket
	if err := c.do(req, &t); err != nil {
		return nil, err
	}
	c.invalidate()
	return &t, nil
}

// Update applies a partial update to a ticket and invalidates cached
// list pages on success.
func (c *Client) Update(ctx context.Context, id uint64, in UpdateTicket) (*model.Ticket, error) {
	payload := map[string]string{}
	if in.Status != nil {
		payload["status"] = *in.Status
	}
	if in.Priority != nil {
		payload["priority"] = *in.Priority
	}
	if in.Department != nil {
		payload["department"] = *in.Department
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tickets/"+strconv.FormatUint(id, 10), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var t model.Ticket
	if err := c.do(req, &t); err != nil {
		return nil, err
	}
	c.invalidate()
	return &t, nil
}

// Resolve marks a ticket resolved and invalidates cached list pages on
// success.
func (c *Client) Resolve(ctx context.Context, id uint64) (*model.Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets/"+strconv.FormatUint(id, 10)+"/resolve", nil)
	if err != nil {
		return nil, err
	}
	var t model.Ticket
	if err := c.do(req, &t); err != nil {
		return nil, err
	}
	c.invalidate()
	return &t, nil
}

// Delete removes a ticket and invalidates cached list pages on success.
func (c *Client) Delete(ctx context.Context, id uint64) (*DeleteResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/tickets/"+strconv.FormatUint(id, 10), nil)
	if err != nil {
		return nil, err
	}
	var res DeleteResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	c.invalidate()
	return &res, nil
}

// invalidate drops every cached page and bumps the generation so
// in-flight list responses are discarded instead of cached.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.gen++
	c.cache = map[string]*TicketPage{}
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do sends the request and decodes a JSON response, translating non-2xx
// replies into APIError with the server's message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := resp.Status
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil {
			if json.Unmarshal(data, &envelope) == nil {
				if envelope.Error != "" {
					msg = envelope.Error
				} else if envelope.Message != "" {
					msg = envelope.Message
				}
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
