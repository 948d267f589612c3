// Package events publishes order lifecycle events to a RabbitMQ topic
// exchange so that notification and dispatch services can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// OrderEvent is the JSON body of every order.* message.
type OrderEvent struct {
	OrderID      string    `json:"order_id"`
	SupplierID   string    `json:"supplier_id"`
	CustomerID   string    `json:"customer_id"`
	SiteID       string    `json:"site_id"`
	ScheduledDay string    `json:"scheduled_day"`
	SlotLabel    string    `json:"slot_label"`
	Status       string    `json:"status"`
	SLAStatus    string    `json:"sla_status,omitempty"`
	SLADegraded  bool      `json:"sla_degraded,omitempty"` // label is not a readable time window
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewOrderEvent builds the event for o's current status.
func NewOrderEvent(o domain.Order, occurredAt time.Time) OrderEvent {
	e := OrderEvent{
		OrderID:      o.ID.String(),
		SupplierID:   o.SupplierID.String(),
		CustomerID:   o.CustomerID.String(),
		SiteID:       o.SiteID.String(),
		ScheduledDay: o.ScheduledDay.Format(domain.DayLayout),
		SlotLabel:    o.ScheduledSlotLabel,
		Status:       string(o.Status),
		OccurredAt:   occurredAt.UTC(),
	}
	if o.SLAStatus != nil {
		e.SLAStatus = string(*o.SLAStatus)
	}
	return e
}

// RoutingKey returns the routing key for an order entering status,
// e.g. "order.placed".
func RoutingKey(status domain.OrderStatus) string {
	return "order." + strings.ToLower(string(status))
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// session is one broker connection with its publishing channel.
type session struct {
	conn io.Closer
	ch   channel
}

type dialFunc func(url, exchange string) (session, error)

// Publisher sends JSON messages to a topic exchange. When the broker closes
// the channel (restart, failover) the next Publish dials a new session.
type Publisher struct {
	url      string
	exchange string
	dial     dialFunc

	mu   sync.Mutex
	sess session
}

// NewPublisher dials url and declares exchange as a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	return newPublisher(url, exchange, dialAMQP)
}

func newPublisher(url, exchange string, dial dialFunc) (*Publisher, error) {
	sess, err := dial(url, exchange)
	if err != nil {
		return nil, fmt.Errorf("events.NewPublisher: %w", err)
	}
	return &Publisher{url: url, exchange: exchange, dial: dial, sess: sess}, nil
}

func dialAMQP(url, exchange string) (session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return session{}, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return session{}, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return session{}, fmt.Errorf("declare exchange: %w", err)
	}
	return session{conn: conn, ch: ch}, nil
}

// Publish marshals v and sends it with routing key key as a persistent message.
// A publish that fails because the channel closed is retried once on a
// fresh session.
func (p *Publisher) Publish(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events.Publisher.Publish: marshal: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensure(); err != nil {
		return fmt.Errorf("events.Publisher.Publish: reconnect: %w", err)
	}
	err = p.sess.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if err != nil && p.sess.ch.IsClosed() {
		p.drop()
		if rerr := p.ensure(); rerr != nil {
			return fmt.Errorf("events.Publisher.Publish: reconnect: %w", rerr)
		}
		err = p.sess.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("events.Publisher.Publish: %w", err)
	}
	return nil
}

// Connected reports whether the publisher holds an open channel.
func (p *Publisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess.ch != nil && !p.sess.ch.IsClosed()
}

// ensure dials a new session unless the current channel is open.
// Callers hold p.mu.
func (p *Publisher) ensure() error {
	if p.sess.ch != nil && !p.sess.ch.IsClosed() {
		return nil
	}
	p.drop()
	sess, err := p.dial(p.url, p.exchange)
	if err != nil {
		return err
	}
	p.sess = sess
	return nil
}

// drop closes and forgets the current session. Callers hold p.mu.
func (p *Publisher) drop() {
	if p.sess.ch != nil {
		_ = p.sess.ch.Close()
	}
	if p.sess.conn != nil {
		_ = p.sess.conn.Close()
	}
	p.sess = session{}
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.sess.ch != nil {
		_ = p.sess.ch.Close()
	}
	if p.sess.conn != nil {
		err = p.sess.conn.Close()
	}
	p.sess = session{}
	return err
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
