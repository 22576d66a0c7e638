package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bongoexpress/cargo-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	ShipmentCreated       = "shipment.created"
	ShipmentStatusUpdated = "shipment.status_updated"
	ShipmentCostUpdated   = "shipment.cost_updated"
	ShipmentDeleted       = "shipment.deleted"
	PaymentCreated        = "payment.created"
	MessageReceived       = "message.received"
	NotifySend            = "notify.send"
)

// Event payloads
type ShipmentCreatedEvent struct {
	ShipmentID string    `json:"shipment_id"`
	Origin     string    `json:"origin"`
	Destination string   `json:"destination"`
	Branch     string    `json:"branch,omitempty"`
	GuestBooking bool    `json:"guest_booking"`
	Cost       float64   `json:"cost"`
	CreatedAt  time.Time `json:"created_at"`
}

type ShipmentStatusUpdatedEvent struct {
	ShipmentID string    `json:"shipment_id"`
	Status     string    `json:"status"`
	Location   string    `json:"location"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ShipmentCostUpdatedEvent struct {
	ShipmentID string  `json:"shipment_id"`
	Cost       float64 `json:"cost"`
}

type PaymentCreatedEvent struct {
	PaymentID string  `json:"payment_id"`
	ShipmentID string `json:"shipment_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
}

type NotificationEvent struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
	Link   string `json:"link"`
}
