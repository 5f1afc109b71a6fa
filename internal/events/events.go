// Package events publishes domain events after their transaction commits.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const SubjectDelivery = "sms.delivery"

type DeliveryEvent struct {
	ReportID          string    `json:"report_id"`
	SMSID             string    `json:"sms_id"`
	UserID            string    `json:"user_id"`
	Recipient         string    `json:"recipient"`
	Status            string    `json:"status"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishDelivery(event DeliveryEvent) error
	Close()
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishDelivery(DeliveryEvent) error { return nil }
func (Nop) Close()                              {}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSPublisher(url, name string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) PublishDelivery(event DeliveryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectDelivery, payload)
}

func (p *NATSPublisher) Close() {
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Drain(); err != nil {
			p.logger.Warn("nats drain failed", "error", err)
		}
	}
}

// New returns a NATS publisher for url, or Nop when url is empty.
func New(url string, logger *slog.Logger) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return NewNATSPublisher(url, "smsgateway", logger)
}
