// Package worker scores leads asynchronously from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/leadscore/internal/bus"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/pipeline"
)

// Worker rescores leads when they change or gain activity and publishes
// the result. It also answers score requests.
type Worker struct {
	bus       domain.EventBus
	processor *pipeline.Processor

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
	hot       atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(eventBus domain.EventBus, processor *pipeline.Processor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       eventBus,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the scoring topics of every configured tenant.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return fmt.Errorf("at least one tenant is required")
	}

	started := 0
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no tenant worker could be started")
	}

	slog.Info("workers started",
		"tenant_count", started,
	)
	return nil
}

func (w *Worker) startTenantWorker(tenantID string) error {
	handlers := map[string]domain.MessageHandler{
		domain.TopicLeadUpserted:     w.handleLeadChanged,
		domain.TopicActivityRecorded: w.handleLeadChanged,
		domain.TopicScoreRequest:     w.handleScoreRequest,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, topic := range []string{domain.TopicLeadUpserted, domain.TopicActivityRecorded, domain.TopicScoreRequest} {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, topic, handlers[topic])
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
	)
	return nil
}

// handleLeadChanged rescores a lead and publishes lead.scored, plus
// lead.hot for grade A leads.
func (w *Worker) handleLeadChanged(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	event, resp, err := w.score(ctx, msg)
	if err != nil {
		w.failed.Add(1)
		return err
	}
	w.processed.Add(1)

	scored := &domain.LeadEvent{
		LeadID:   event.LeadID,
		TenantID: event.TenantID,
		TraceID:  event.TraceID,
		Score:    resp.Score,
	}
	if err := bus.PublishLeadEvent(ctx, w.bus, domain.TopicLeadScored, scored); err != nil {
		slog.Error("failed to publish score",
			"lead_id", event.LeadID,
			"error", err,
		)
	}

	if pipeline.IsHot(resp.Score) {
		w.hot.Add(1)
		if err := bus.PublishLeadEvent(ctx, w.bus, domain.TopicHotLead, scored); err != nil {
			slog.Error("failed to publish hot lead",
				"lead_id", event.LeadID,
				"error", err,
			)
		}
	}

	slog.Info("lead scored",
		"lead_id", event.LeadID,
		"tenant_id", event.TenantID,
		"topic", msg.Topic,
		"score", resp.Score.TotalScore,
		"grade", resp.Score.Grade,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// handleScoreRequest answers a request-reply score call with a ScoreResponse.
func (w *Worker) handleScoreRequest(ctx context.Context, msg *domain.Message) error {
	replier, ok := w.bus.(bus.Replier)
	if !ok {
		return fmt.Errorf("event bus does not support replies")
	}

	_, resp, err := w.score(ctx, msg)
	if err != nil {
		w.failed.Add(1)
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return replier.Reply(ctx, msg, payload)
	}
	w.processed.Add(1)

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal score response: %w", err)
	}
	return replier.Reply(ctx, msg, payload)
}

// score decodes a lead event and scores the carried lead, or the stored
// lead when the event only names it.
func (w *Worker) score(ctx context.Context, msg *domain.Message) (*domain.LeadEvent, *domain.ScoreResponse, error) {
	event, err := bus.DecodeLeadEvent(msg)
	if err != nil {
		slog.Error("failed to parse lead event",
			"message_id", msg.ID,
			"error", err,
		)
		return nil, nil, err
	}

	traceID := event.TraceID
	if traceID == "" {
		traceID = msg.ID
	}
	event.TraceID = traceID

	var resp *domain.ScoreResponse
	if event.Lead != nil {
		lead := event.Lead
		lead.TenantID = event.TenantID
		resp, err = w.processor.Score(ctx, event.TenantID, lead, traceID)
	} else {
		resp, err = w.processor.ScoreStored(ctx, event.TenantID, event.LeadID, traceID)
	}
	if err != nil {
		slog.Error("lead scoring failed",
			"lead_id", event.LeadID,
			"tenant_id", event.TenantID,
			"error", err,
		)
		return nil, nil, err
	}
	return event, resp, nil
}

// Stop unsubscribes every tenant worker.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
	HotLeads          int64    `json:"hotLeads"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
		HotLeads:          w.hot.Load(),
	}
}
