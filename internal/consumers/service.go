// Package consumers runs the audit consumer that records every ticket change
// event published by the API.
package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"ticketapi/internal/config"
	"ticketapi/internal/messaging"
	"ticketapi/internal/models"

	"github.com/nats-io/stan.go"
)

const auditQueue = "ticket-audit"

type ConsumerService struct {
	nats     *messaging.NATSClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	return &ConsumerService{
		nats:     natsClient,
		handlers: NewHandlers(slog.Default()),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	for _, subject := range models.TicketEventTypes {
		sub, err := cs.nats.SubscribeQueue(subject, auditQueue, func(m *stan.Msg) {
			cs.handlers.HandleTicketChanged(stanMessage{m})
		})
		if err != nil {
			return fmt.Errorf("failed to start consumer for %s: %w", subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subjects", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close keeps the durable queue position for the next start
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
			return err
		}
	}

	return nil
}

type stanMessage struct {
	msg *stan.Msg
}

func (m stanMessage) Payload() []byte { return m.msg.Data }

func (m stanMessage) Ack() error { return m.msg.Ack() }
