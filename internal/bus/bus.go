// Package bus provides event bus implementations for leadscore.
//
// Events are advisory: scores are never persisted, so subscribers that
// miss a lead.scored event can always recompute it.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/leadscore/internal/domain"
	"go.opentelemetry.io/otel/trace"
)

// MetaTraceID is the message metadata key carrying the publisher's trace.
const MetaTraceID = "traceId"

// DefaultRequestTimeout bounds Request when ctx carries no deadline.
const DefaultRequestTimeout = 30 * time.Second

var (
	ErrMissingTenant = errors.New("tenantID is required")
	ErrClosed        = errors.New("bus is closed")
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// newMessage builds the envelope shared by every bus implementation.
func newMessage(ctx context.Context, tenantID, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.Metadata[MetaTraceID] = sc.TraceID().String()
	}
	return msg
}

// PublishLeadEvent encodes and publishes a lead event on topic.
// The event's tenant is used for routing.
func PublishLeadEvent(ctx context.Context, b domain.EventBus, topic string, event *domain.LeadEvent) error {
	if event == nil || event.TenantID == "" {
		return fmt.Errorf("lead event with tenantId is required")
	}
	if event.TraceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			event.TraceID = sc.TraceID().String()
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lead event: %w", err)
	}
	return b.Publish(ctx, event.TenantID, topic, payload)
}

// DecodeLeadEvent parses a lead event from a message. The message
// tenant wins over whatever tenant the payload claims.
func DecodeLeadEvent(msg *domain.Message) (*domain.LeadEvent, error) {
	var event domain.LeadEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode lead event %s: %w", msg.ID, err)
	}
	event.TenantID = msg.TenantID
	if event.TraceID == "" {
		event.TraceID = msg.Metadata[MetaTraceID]
	}
	if event.LeadID == "" && event.Lead != nil {
		event.LeadID = event.Lead.ID
	}
	if event.LeadID == "" {
		return nil, fmt.Errorf("lead event %s has no lead id", msg.ID)
	}
	return &event, nil
}

// Replier is implemented by buses that support answering requests.
type Replier interface {
	Reply(ctx context.Context, req *domain.Message, payload []byte) error
}
