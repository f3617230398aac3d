package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

// Publisher sends ticket change notifications.
type Publisher interface {
	Publish(subject string, data interface{}) error
	Close() error
}

type Config struct {
	Enabled       bool
	URL           string
	ClusterID     string
	ClientID      string
	SubjectPrefix string
}

type NATSClient struct {
	conn   stan.Conn
	prefix string
}

// NewPublisher connects to NATS Streaming when enabled and otherwise returns a
// publisher that drops every message.
func NewPublisher(cfg Config) (Publisher, error) {
	if !cfg.Enabled {
		slog.Info("NATS publishing disabled")
		return NopPublisher{}, nil
	}
	return NewNATSClient(cfg)
}

func NewNATSClient(cfg Config) (*NATSClient, error) {
	// Generate unique client ID to avoid conflicts between replicas
	uniqueClientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, uniqueClientID, stan.NatsURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	slog.Info("Connected to NATS Streaming",
		"url", cfg.URL, "cluster", cfg.ClusterID, "client", uniqueClientID)

	return &NATSClient{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

func (nc *NATSClient) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	subject = nc.prefix + subject
	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	slog.Debug("Published message", "subject", subject)
	return nil
}

// SubscribeQueue joins a durable queue group on a prefixed subject. Handlers must
// Ack each message; unacknowledged messages are redelivered after AckWait.
func (nc *NATSClient) SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error) {
	subject = nc.prefix + subject
	sub, err := nc.conn.QueueSubscribe(subject, queue, handler,
		stan.DurableName(queue+"-durable"),
		stan.SetManualAckMode(),
		stan.AckWait(30*time.Second),
		stan.MaxInflight(1))
	if err != nil {
		return nil, fmt.Errorf("failed to queue subscribe to subject %s: %w", subject, err)
	}

	slog.Info("Subscribed to subject", "subject", subject, "queue", queue)
	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc.conn != nil {
		return nc.conn.Close()
	}
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) error { return nil }

func (NopPublisher) Close() error { return nil }
