package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// byteStore is the raw key/value surface every cache tier provides.
type byteStore interface {
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
}

// LeadKey returns the cache key for a lead record.
func LeadKey(leadID string) string {
	return "lead:" + leadID
}

func getLead(ctx context.Context, store byteStore, tenantID, leadID string) (*domain.Lead, error) {
	data, err := store.Get(ctx, tenantID, LeadKey(leadID))
	if err != nil || data == nil {
		return nil, err
	}

	var lead domain.Lead
	if err := json.Unmarshal(data, &lead); err != nil {
		return nil, fmt.Errorf("failed to decode cached lead %s: %w", leadID, err)
	}
	return &lead, nil
}

func setLead(ctx context.Context, store byteStore, tenantID string, lead *domain.Lead, ttl time.Duration) error {
	if lead == nil || lead.ID == "" {
		return fmt.Errorf("lead with id is required")
	}

	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead %s: %w", lead.ID, err)
	}
	return store.Set(ctx, tenantID, LeadKey(lead.ID), data, ttl)
}
