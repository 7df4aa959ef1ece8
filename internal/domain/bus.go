package domain

import "context"

// EventBus carries lead events between the API and the scoring worker.
// The Community tier runs it on Go channels, Pro on NATS. Every topic is
// scoped to a tenant and a subscriber only sees its own tenant's events.
type EventBus interface {
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe delivers the tenant's messages on topic to handler until
	// the returned Subscription is cancelled.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request publishes payload and blocks for the first reply, e.g. a
	// ScoreResponse on TopicScoreRequest.
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler handles one delivered message. Returned errors are
// logged by the bus; there is no redelivery.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the envelope every bus implementation transports. Metadata
// carries the trace id and, for requests, the reply address.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds

	// NATSQueueGroup, when set, load-balances subscriptions across
	// every leadscore instance joined to the same group.
	NATSQueueGroup string
}

// Standard topic names for the scoring pipeline.
const (
	TopicLeadUpserted     = "leadscore.lead.upserted"
	TopicLeadScored       = "leadscore.lead.scored"
	TopicHotLead          = "leadscore.lead.hot"
	TopicActivityRecorded = "leadscore.activity.recorded"

	// TopicScoreRequest is answered with a ScoreResponse (request-reply).
	TopicScoreRequest = "leadscore.score.request"
)

// LeadEvent is the payload published on lead topics.
type LeadEvent struct {
	LeadID   string     `json:"leadId"`
	TenantID string     `json:"tenantId"`
	TraceID  string     `json:"traceId,omitempty"`
	Lead     *Lead      `json:"lead,omitempty"`
	Score    *LeadScore `json:"score,omitempty"`
}
