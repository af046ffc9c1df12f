package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symmetrons/support-api/internal/model"
)

func TestHandleMessageAppendsToLog(t *testing.T) {
	dir := t.TempDir()

	ev := TicketEvent{
		Type:        EventTicketCreated,
		TicketID:    42,
		Subject:     "Projector broken",
		Department:  "IT Support",
		Priority:    "high",
		Status:      "open",
		Attachments: 2,
		OccurredAt:  "2026-08-30T10:00:00Z",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, handleMessage(dir, body))
	require.NoError(t, handleMessage(dir, body))

	data, err := os.ReadFile(filepath.Join(dir, "tickets.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2, "each message appends one line")
	assert.Equal(t, lines[0], lines[1])
	assert.Contains(t, lines[0], "ticket.created")
	assert.Contains(t, lines[0], "ticket_id=42")
	assert.Contains(t, lines[0], `subject="Projector broken"`)
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, handleMessage(dir, []byte("not json")))
	_, err := os.Stat(filepath.Join(dir, "tickets.log"))
	assert.True(t, os.IsNotExist(err), "bad payload must not create a log file")
}

func TestFormatEvent(t *testing.T) {
	full := TicketEvent{
		Type:        EventTicketResolved,
		TicketID:    7,
		Subject:     "VPN down",
		Department:  "IT Support",
		Priority:    "urgent",
		Status:      "resolved",
		Attachments: 1,
		OccurredAt:  "2026-08-30T10:00:00Z",
	}
	got := formatEvent(full)
	assert.Equal(t, "[2026-08-30T10:00:00Z] ticket.resolved | ticket_id=7 | subject=\"VPN down\" | department=\"IT Support\" | priority=urgent | status=resolved | attachments=1\n", got)

	short := TicketEvent{Type: EventTicketDeleted, TicketID: 7, OccurredAt: "2026-08-30T10:05:00Z"}
	assert.Equal(t, "[2026-08-30T10:05:00Z] ticket.deleted | ticket_id=7\n", formatEvent(short))
}

func TestNewTicketEvent(t *testing.T) {
	desc := "screen stays black"
	tk := &model.Ticket{
		ID:          3,
		Subject:     "Monitor dead",
		Description: &desc,
		Department:  "IT Support",
		Priority:    "high",
		Status:      "open",
		Attachments: []model.TicketAttachment{{ID: 1}, {ID: 2}},
	}
	ev := NewTicketEvent(EventTicketCreated, tk)
	assert.Equal(t, EventTicketCreated, ev.Type)
	assert.Equal(t, uint64(3), ev.TicketID)
	assert.Equal(t, "Monitor dead", ev.Subject)
	assert.Equal(t, 2, ev.Attachments)
	assert.NotEmpty(t, ev.OccurredAt)
}
