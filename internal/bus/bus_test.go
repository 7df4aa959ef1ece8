package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
	"go.opentelemetry.io/otel/trace"
)

func waitFor(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		got := make(chan *domain.Message, 1)

		_, err := bus.Subscribe(ctx, tenantID, domain.TopicLeadUpserted, func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, tenantID, domain.TopicLeadUpserted, []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		msg := waitFor(t, got)
		if string(msg.Payload) != "hello" {
			t.Errorf("expected payload 'hello', got '%s'", string(msg.Payload))
		}
		if msg.TenantID != tenantID {
			t.Errorf("expected tenantID '%s', got '%s'", tenantID, msg.TenantID)
		}
		if msg.ID == "" || msg.Timestamp == 0 {
			t.Error("expected envelope id and timestamp")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		var received1, received2 atomic.Int32
		done := make(chan *domain.Message, 1)

		bus.Subscribe(ctx, "tenant-001", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received1.Add(1)
			done <- msg
			return nil
		})
		bus.Subscribe(ctx, "tenant-002", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received2.Add(1)
			return nil
		})

		bus.Publish(ctx, "tenant-001", "isolation.topic", []byte("msg1"))
		waitFor(t, done)
		time.Sleep(20 * time.Millisecond)

		if received1.Load() != 1 {
			t.Errorf("tenant1 should receive 1 message, got %d", received1.Load())
		}
		if received2.Load() != 0 {
			t.Errorf("tenant2 should receive 0 messages, got %d", received2.Load())
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := bus.Publish(ctx, "", "topic", []byte("data")); !errors.Is(err, ErrMissingTenant) {
			t.Errorf("expected ErrMissingTenant, got %v", err)
		}

		_, err := bus.Subscribe(ctx, "", "topic", func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("UnsubscribeDetaches", func(t *testing.T) {
		got := make(chan *domain.Message, 4)

		sub, _ := bus.Subscribe(ctx, tenantID, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})

		bus.Publish(ctx, tenantID, "unsub.topic", []byte("msg1"))
		waitFor(t, got)

		if err := sub.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}
		if n := bus.SubscriberCount(tenantID, "unsub.topic"); n != 0 {
			t.Errorf("expected 0 subscribers after unsubscribe, got %d", n)
		}
		// A second call is harmless.
		_ = sub.Unsubscribe()

		bus.Publish(ctx, tenantID, "unsub.topic", []byte("msg2"))
		time.Sleep(30 * time.Millisecond)

		if len(got) != 0 {
			t.Errorf("expected no message after unsubscribe, got %d", len(got))
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		for i := 0; i < 2; i++ {
			bus.Subscribe(ctx, tenantID, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
				wg.Done()
				return nil
			})
		}

		bus.Publish(ctx, tenantID, "multi.topic", []byte("broadcast"))

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expected both subscribers to receive")
		}
	})

	t.Run("TraceIDPropagates", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		traced := trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))

		got := make(chan *domain.Message, 1)
		bus.Subscribe(ctx, tenantID, "traced.topic", func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})

		bus.Publish(traced, tenantID, "traced.topic", []byte("x"))

		msg := waitFor(t, got)
		if msg.Metadata[MetaTraceID] != traceID.String() {
			t.Errorf("expected trace id %s, got %q", traceID, msg.Metadata[MetaTraceID])
		}
	})

	t.Run("RequestReply", func(t *testing.T) {
		bus.Subscribe(ctx, tenantID, "echo.topic", func(ctx context.Context, msg *domain.Message) error {
			return bus.Reply(ctx, msg, append([]byte("re:"), msg.Payload...))
		})

		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		reply, err := bus.Request(reqCtx, tenantID, "echo.topic", []byte("ping"))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if string(reply) != "re:ping" {
			t.Errorf("expected 're:ping', got %q", reply)
		}
	})

	t.Run("ReplyWithoutReplyTo", func(t *testing.T) {
		msg := &domain.Message{ID: "m1", TenantID: tenantID, Metadata: map[string]string{}}
		if err := bus.Reply(ctx, msg, nil); err == nil {
			t.Error("expected error replying to a plain event")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, tenantID, domain.TopicLeadScored, func(ctx context.Context, msg *domain.Message) error {
			return nil
		})

		if sub.Topic() != domain.TopicLeadScored {
			t.Errorf("expected topic '%s', got '%s'", domain.TopicLeadScored, sub.Topic())
		}
	})
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)

	ctx := context.Background()
	tenantID := "tenant-001"

	bus.Subscribe(ctx, tenantID, "close.topic", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	if err := bus.Publish(ctx, tenantID, "close.topic", []byte("data")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestLeadEvents(t *testing.T) {
	bus := NewChannelBus(10)
	defer bus.Close()
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		got := make(chan *domain.Message, 1)
		bus.Subscribe(ctx, "tenant-001", domain.TopicLeadScored, func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})

		event := &domain.LeadEvent{
			LeadID:   "lead-001",
			TenantID: "tenant-001",
			Score:    &domain.LeadScore{LeadID: "lead-001", TotalScore: 82, Grade: domain.GradeA},
		}
		if err := PublishLeadEvent(ctx, bus, domain.TopicLeadScored, event); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		decoded, err := DecodeLeadEvent(waitFor(t, got))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded.LeadID != "lead-001" || decoded.Score == nil || decoded.Score.Grade != domain.GradeA {
			t.Errorf("unexpected event: %+v", decoded)
		}
	})

	t.Run("RequiresTenant", func(t *testing.T) {
		if err := PublishLeadEvent(ctx, bus, domain.TopicLeadScored, &domain.LeadEvent{LeadID: "x"}); err == nil {
			t.Error("expected error for event without tenant")
		}
	})

	t.Run("MessageTenantWins", func(t *testing.T) {
		msg := &domain.Message{
			ID:       "m1",
			TenantID: "tenant-real",
			Payload:  []byte(`{"leadId":"lead-1","tenantId":"tenant-spoofed"}`),
		}
		event, err := DecodeLeadEvent(msg)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if event.TenantID != "tenant-real" {
			t.Errorf("expected tenant-real, got %s", event.TenantID)
		}
	})

	t.Run("LeadIDFromLead", func(t *testing.T) {
		msg := &domain.Message{ID: "m2", TenantID: "t", Payload: []byte(`{"lead":{"id":"lead-9","name":"n"}}`)}
		event, err := DecodeLeadEvent(msg)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if event.LeadID != "lead-9" {
			t.Errorf("expected lead-9, got %s", event.LeadID)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, payload := range []string{`not json`, `{}`} {
			msg := &domain.Message{ID: "m3", TenantID: "t", Payload: []byte(payload)}
			if _, err := DecodeLeadEvent(msg); err == nil {
				t.Errorf("expected error for payload %q", payload)
			}
		}
	})
}

func TestSubject(t *testing.T) {
	if got := Subject("tenant-001", domain.TopicLeadScored); got != "leadscore.lead.scored.tenant-001" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		bus, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 50})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer bus.Close()

		if _, ok := bus.(*ChannelBus); !ok {
			t.Error("expected ChannelBus for channel type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.EventBusConfig{Type: "kafka"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()
	tenantID := "tenant-load"

	var received atomic.Int32
	const messageCount = 100

	var wg sync.WaitGroup
	wg.Add(messageCount)

	bus.Subscribe(ctx, tenantID, "load.topic", func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	for i := 0; i < messageCount; i++ {
		bus.Publish(ctx, tenantID, "load.topic", []byte("msg"))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Load() != messageCount {
			t.Errorf("expected %d messages, got %d", messageCount, received.Load())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: received %d/%d messages", received.Load(), messageCount)
	}
}
