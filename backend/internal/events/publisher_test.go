package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"research-graph/backend/internal/agent"
)

type capturePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (c *capturePublisher) PublishMsg(msg *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	assert.Equal(t, "", carrier.Get("missing"))
	assert.Nil(t, carrier.Keys())

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Len(t, carrier.Keys(), 1)
}

func TestPublisher_PublishesOutcomeWithTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	ctx, span := provider.Tracer("test").Start(context.Background(), "cycle")
	defer span.End()

	conn := &capturePublisher{}
	p := NewPublisher(conn, "")
	outcome := &agent.CycleOutcome{CycleID: "c-1", Topic: "graphs", NextTopic: "nodes", Validated: 2}

	require.NoError(t, p.Notify(ctx, outcome))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, DefaultSubject, msg.Subject)

	var got agent.CycleOutcome
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "c-1", got.CycleID)
	assert.Equal(t, "nodes", got.NextTopic)
	assert.Equal(t, 2, got.Validated)

	extracted := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(extracted).TraceID())
}

func TestPublisher_ReportsPublishError(t *testing.T) {
	p := NewPublisher(&capturePublisher{err: errors.New("connection closed")}, "custom.subject")
	assert.Equal(t, "custom.subject", p.Subject())

	err := p.Notify(context.Background(), &agent.CycleOutcome{Topic: "graphs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom.subject")
}
