package consumers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"ticketapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	data  []byte
	acked bool
}

func (m *fakeMessage) Payload() []byte { return m.data }

func (m *fakeMessage) Ack() error {
	m.acked = true
	return nil
}

func newTestHandlers() (*Handlers, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewHandlers(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func TestHandleTicketChanged(t *testing.T) {
	h, buf := newTestHandlers()

	payload, err := json.Marshal(models.TicketChangedEvent{
		Type:      models.EventTicketUpdated,
		TicketID:  "abc",
		Changes:   map[string]any{"precio": 50.0},
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	msg := &fakeMessage{data: payload}
	h.HandleTicketChanged(msg)

	assert.True(t, msg.acked)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Ticket changed", record["msg"])
	assert.Equal(t, models.EventTicketUpdated, record["type"])
	assert.Equal(t, "abc", record["ticket_id"])
}

func TestHandleTicketCreatedIncludesTicket(t *testing.T) {
	h, buf := newTestHandlers()

	payload, err := json.Marshal(models.TicketChangedEvent{
		Type:     models.EventTicketCreated,
		TicketID: "abc",
		Ticket:   &models.Ticket{ID: "abc", EventoID: 7, Silla: 14},
	})
	require.NoError(t, err)

	h.HandleTicketChanged(&fakeMessage{data: payload})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, float64(7), record["evento_id"])
	assert.Equal(t, float64(14), record["silla"])
}

func TestHandleTicketChangedDropsBadMessages(t *testing.T) {
	h, buf := newTestHandlers()

	invalid := &fakeMessage{data: []byte("not json")}
	h.HandleTicketChanged(invalid)
	assert.True(t, invalid.acked)
	assert.Contains(t, buf.String(), "Failed to unmarshal ticket event")

	buf.Reset()
	unknown := &fakeMessage{data: []byte(`{"type":"ticket.archived"}`)}
	h.HandleTicketChanged(unknown)
	assert.True(t, unknown.acked)
	assert.Contains(t, buf.String(), "Unknown ticket event type")
}
