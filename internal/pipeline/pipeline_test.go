package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/leadscore/internal/activity"
	"github.com/opensource-finance/leadscore/internal/cache"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/repository"
	"github.com/opensource-finance/leadscore/internal/scoring"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func newTestProcessor(t *testing.T) (*Processor, domain.Repository, *cache.LRUCache) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	registry := scoring.NewRegistry(repo, scoring.DefaultScoringRules(), 4)
	t.Cleanup(func() { registry.Close() })

	return NewProcessor(repo, lru, registry, activity.NewService(repo, 0), time.Minute), repo, lru
}

func hotLead() *domain.Lead {
	return &domain.Lead{
		ID:        "lead-hot",
		Name:      "Grace Hopper",
		Email:     "grace@navy.test",
		Phone:     "+12025550123",
		JobTitle:  "CEO",
		Company:   "Navy",
		Industry:  "Technology",
		Employees: intPtr(500),
		Revenue:   floatPtr(5000000),
		Source:    "Referral",
		Status:    domain.LeadStatusNew,
	}
}

func TestProcessorLeadLifecycle(t *testing.T) {
	p, repo, lru := newTestProcessor(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	lead := hotLead()
	if err := p.SaveLead(ctx, tenantID, lead); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}

	t.Run("LoadPopulatesCache", func(t *testing.T) {
		got, err := p.LoadLead(ctx, tenantID, lead.ID)
		if err != nil {
			t.Fatalf("LoadLead failed: %v", err)
		}
		if got.Name != lead.Name {
			t.Errorf("expected %s, got %s", lead.Name, got.Name)
		}

		cached, _ := lru.GetLead(ctx, tenantID, lead.ID)
		if cached == nil {
			t.Error("expected lead to be cached after load")
		}
	})

	t.Run("SaveInvalidatesCache", func(t *testing.T) {
		updated := hotLead()
		updated.Name = "Rear Admiral Hopper"
		if err := p.SaveLead(ctx, tenantID, updated); err != nil {
			t.Fatalf("SaveLead failed: %v", err)
		}

		if cached, _ := lru.GetLead(ctx, tenantID, lead.ID); cached != nil {
			t.Error("expected cache entry dropped after save")
		}

		got, _ := p.LoadLead(ctx, tenantID, lead.ID)
		if got.Name != "Rear Admiral Hopper" {
			t.Errorf("expected updated name, got %s", got.Name)
		}
	})

	t.Run("DeleteInvalidatesCache", func(t *testing.T) {
		if err := p.DeleteLead(ctx, tenantID, lead.ID); err != nil {
			t.Fatalf("DeleteLead failed: %v", err)
		}
		if cached, _ := lru.GetLead(ctx, tenantID, lead.ID); cached != nil {
			t.Error("expected cache entry dropped after delete")
		}
		if _, err := p.LoadLead(ctx, tenantID, lead.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetLead(ctx, tenantID, lead.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected lead removed from storage, got %v", err)
		}
	})
}

func TestProcessorScore(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("HotLead", func(t *testing.T) {
		resp, err := p.Score(ctx, tenantID, hotLead(), "trace-1")
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if resp.Score.Grade != domain.GradeA {
			t.Errorf("expected grade A, got %s (%d)", resp.Score.Grade, resp.Score.TotalScore)
		}
		if !IsHot(resp.Score) {
			t.Error("expected hot lead")
		}
		if resp.Metadata.TraceID != "trace-1" || resp.Metadata.EngineVersion != EngineVersion {
			t.Errorf("unexpected metadata: %+v", resp.Metadata)
		}
		if resp.Metadata.RulesLoaded != len(scoring.DefaultScoringRules()) {
			t.Errorf("expected default rules loaded, got %d", resp.Metadata.RulesLoaded)
		}
	})

	t.Run("EmptyLead", func(t *testing.T) {
		resp, err := p.Score(ctx, tenantID, &domain.Lead{ID: "cold", Name: "Cold"}, "")
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if resp.Score.TotalScore != 0 || resp.Score.Grade != domain.GradeF {
			t.Errorf("expected 0/F, got %d/%s", resp.Score.TotalScore, resp.Score.Grade)
		}
		if IsHot(resp.Score) {
			t.Error("expected cold lead not to be hot")
		}
	})

	t.Run("ActivitiesRaiseEngagement", func(t *testing.T) {
		lead := &domain.Lead{ID: "engaged", Name: "Engaged", Status: domain.LeadStatusNew}
		if err := p.SaveLead(ctx, tenantID, lead); err != nil {
			t.Fatalf("SaveLead failed: %v", err)
		}

		before, _ := p.ScoreStored(ctx, tenantID, lead.ID, "")

		svc := activity.NewService(p.repo, 0)
		for i := 0; i < 3; i++ {
			if err := svc.Record(ctx, tenantID, &domain.Activity{LeadID: lead.ID, Type: domain.ActivityCall}); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
		}

		after, err := p.ScoreStored(ctx, tenantID, lead.ID, "")
		if err != nil {
			t.Fatalf("ScoreStored failed: %v", err)
		}
		if after.Score.TotalScore <= before.Score.TotalScore {
			t.Errorf("expected activities to raise score, before %d after %d",
				before.Score.TotalScore, after.Score.TotalScore)
		}

		stored, _ := p.repo.GetLead(ctx, tenantID, lead.ID)
		if _, ok := stored.Metadata[activity.MetaActivityCount]; ok {
			t.Error("enrichment must not be persisted")
		}
	})

	t.Run("ScoreAllKeepsOrder", func(t *testing.T) {
		leads := []*domain.Lead{hotLead(), {ID: "cold", Name: "Cold"}}
		scores, err := p.ScoreAll(ctx, tenantID, leads)
		if err != nil {
			t.Fatalf("ScoreAll failed: %v", err)
		}
		if len(scores) != 2 {
			t.Fatalf("expected 2 scores, got %d", len(scores))
		}
		if scores[0].LeadID != "lead-hot" || scores[1].LeadID != "cold" {
			t.Errorf("unexpected order: %s, %s", scores[0].LeadID, scores[1].LeadID)
		}
	})

	t.Run("UnknownStoredLead", func(t *testing.T) {
		if _, err := p.ScoreStored(ctx, tenantID, "missing", ""); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
