package consumers

import (
	"encoding/json"
	"log/slog"

	"ticketapi/internal/metrics"
	"ticketapi/internal/models"
)

// Message is the part of a NATS Streaming message the handlers use.
type Message interface {
	Payload() []byte
	Ack() error
}

type Handlers struct {
	log *slog.Logger
}

func NewHandlers(log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{log: log}
}

// HandleTicketChanged writes one audit record per ticket change event. Messages
// that cannot be decoded are acknowledged and dropped, since redelivery would
// never succeed.
func (h *Handlers) HandleTicketChanged(m Message) {
	var event models.TicketChangedEvent
	if err := json.Unmarshal(m.Payload(), &event); err != nil {
		h.log.Error("Failed to unmarshal ticket event", "error", err)
		metrics.ObserveEvent("unknown", "invalid")
		h.ack(m)
		return
	}

	fields := []any{"type", event.Type, "timestamp", event.Timestamp}
	switch event.Type {
	case models.EventTicketCreated:
		fields = append(fields, "ticket_id", event.TicketID)
		if event.Ticket != nil {
			fields = append(fields, "evento_id", event.Ticket.EventoID, "silla", event.Ticket.Silla)
		}
	case models.EventTicketUpdated, models.EventTicketReplaced:
		fields = append(fields, "ticket_id", event.TicketID, "changes", event.Changes)
	case models.EventTicketDeleted:
		fields = append(fields, "ticket_id", event.TicketID)
	case models.EventTicketBulkUpdated:
		fields = append(fields, "count", event.Count, "where", event.Where, "changes", event.Changes)
	default:
		h.log.Warn("Unknown ticket event type", "type", event.Type)
		metrics.ObserveEvent(event.Type, "unknown")
		h.ack(m)
		return
	}

	h.log.Info("Ticket changed", fields...)
	metrics.ObserveEvent(event.Type, "ok")
	h.ack(m)
}

func (h *Handlers) ack(m Message) {
	if err := m.Ack(); err != nil {
		h.log.Error("Failed to ack ticket event", "error", err)
	}
}
