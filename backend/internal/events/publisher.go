// Package events publishes research cycle outcomes on NATS, with
// OpenTelemetry trace context carried in the message headers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"research-graph/backend/internal/agent"
	"research-graph/backend/pkg/logger"
)

// DefaultSubject carries completed cycles
const DefaultSubject = "research.cycle.completed"

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// MsgPublisher is the part of a NATS connection the publisher needs
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Connect opens a NATS connection that keeps reconnecting in the background
func Connect(url, name string) (*nats.Conn, error) {
	log := logger.Named("events")
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Publisher announces cycle outcomes on a subject
type Publisher struct {
	conn    MsgPublisher
	subject string
}

// NewPublisher creates a publisher; an empty subject means DefaultSubject
func NewPublisher(conn MsgPublisher, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Subject returns the subject events are published on
func (p *Publisher) Subject() string {
	return p.subject
}

// Notify implements agent.Notifier
func (p *Publisher) Notify(ctx context.Context, outcome *agent.CycleOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to encode cycle outcome: %w", err)
	}
	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", p.subject, err)
	}
	return nil
}

// Subscribe calls handler for every outcome published on subject.
// Trace context is extracted from the headers. Malformed messages are dropped.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, agent.CycleOutcome)) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var outcome agent.CycleOutcome
		if err := json.Unmarshal(msg.Data, &outcome); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, outcome)
	})
}
