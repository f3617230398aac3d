package models

import "time"

// NATS event types
const (
	EventTicketCreated     = "ticket.created"
	EventTicketUpdated     = "ticket.updated"
	EventTicketReplaced    = "ticket.replaced"
	EventTicketDeleted     = "ticket.deleted"
	EventTicketBulkUpdated = "ticket.bulk_updated"
)

// TicketChangedEvent is published after a successful write.
type TicketChangedEvent struct {
	Type      string         `json:"type"`
	TicketID  string         `json:"ticket_id,omitempty"`
	Ticket    *Ticket        `json:"ticket,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	Where     map[string]any `json:"where,omitempty"`
	Count     int64          `json:"count,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// TicketEventTypes lists every event TicketService publishes.
var TicketEventTypes = []string{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketReplaced,
	EventTicketDeleted,
	EventTicketBulkUpdated,
}
