package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/opensource-finance/leadscore/internal/contact"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/scoring"
)

const sampleCSV = `id,Name,Email,Phone,Job Title,Company,Industry,Employees,Revenue,Source,budget,timeline
lead-1,Grace Hopper,grace@navy.test,(650) 253-0000,CEO,Navy,Technology,500,5000000,Referral,50000,immediate
,Ada Lovelace,,,,,,,,,,
`

func TestReadLeads(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		csvData := strings.Replace(sampleCSV, "Job Title", "job_title", 1)
		leads, err := readLeads(strings.NewReader(csvData))
		if err != nil {
			t.Fatalf("readLeads failed: %v", err)
		}
		if len(leads) != 2 {
			t.Fatalf("expected 2 leads, got %d", len(leads))
		}

		grace := leads[0]
		if grace.ID != "lead-1" || grace.JobTitle != "CEO" {
			t.Errorf("unexpected lead: %+v", grace)
		}
		if grace.Employees == nil || *grace.Employees != 500 {
			t.Errorf("expected 500 employees, got %v", grace.Employees)
		}
		if grace.Metadata["budget"] != 50000.0 {
			t.Errorf("expected numeric budget metadata, got %v", grace.Metadata["budget"])
		}
		if grace.Metadata["timeline"] != "immediate" {
			t.Errorf("expected timeline metadata, got %v", grace.Metadata["timeline"])
		}

		ada := leads[1]
		if ada.ID != "row-2" {
			t.Errorf("expected generated id row-2, got %s", ada.ID)
		}
		if ada.Employees != nil || ada.Metadata != nil {
			t.Errorf("expected empty cells to stay missing, got %+v", ada)
		}
		if ada.Status != domain.LeadStatusNew {
			t.Errorf("expected default status new, got %s", ada.Status)
		}
	})

	t.Run("MissingNameColumn", func(t *testing.T) {
		if _, err := readLeads(strings.NewReader("id,email\n1,a@b.test\n")); err == nil {
			t.Error("expected error without name column")
		}
	})

	t.Run("MissingName", func(t *testing.T) {
		if _, err := readLeads(strings.NewReader("id,name\n1,\n")); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("BadNumber", func(t *testing.T) {
		_, err := readLeads(strings.NewReader("name,employees\nAda,many\n"))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("expected line-numbered error, got %v", err)
		}
	})

	t.Run("LastActivity", func(t *testing.T) {
		leads, err := readLeads(strings.NewReader("name,last_activity\nAda,2025-03-01\n"))
		if err != nil {
			t.Fatalf("readLeads failed: %v", err)
		}
		if leads[0].LastActivity == nil || leads[0].LastActivity.Day() != 1 {
			t.Errorf("expected parsed date, got %v", leads[0].LastActivity)
		}
	})
}

func TestScoreLeads(t *testing.T) {
	leads, err := readLeads(strings.NewReader(strings.Replace(sampleCSV, "Job Title", "title", 1)))
	if err != nil {
		t.Fatalf("readLeads failed: %v", err)
	}

	report := scoreLeads(leads, scoring.DefaultRuleSet(), contact.NewNormalizer("US"))

	if report.Count != 2 {
		t.Fatalf("expected 2 scores, got %d", report.Count)
	}
	if report.Scores[0].Grade != domain.GradeA {
		t.Errorf("expected first lead graded A, got %s (%d)", report.Scores[0].Grade, report.Scores[0].TotalScore)
	}
	if report.Scores[1].Grade != domain.GradeF {
		t.Errorf("expected empty lead graded F, got %s", report.Scores[1].Grade)
	}
	if report.Distribution[domain.GradeA] != 1 || report.Distribution[domain.GradeF] != 1 {
		t.Errorf("unexpected distribution: %v", report.Distribution)
	}
	if leads[0].Phone != "+16502530000" {
		t.Errorf("expected normalized phone, got %s", leads[0].Phone)
	}

	var buf bytes.Buffer
	printReport(&buf, leads, report)
	if !strings.Contains(buf.String(), "A=1") {
		t.Errorf("expected distribution line, got:\n%s", buf.String())
	}
}

func TestPushAll(t *testing.T) {
	var mu sync.Mutex
	received := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.LeadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Name == "Reject" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "rejected"})
			return
		}
		mu.Lock()
		received[req.ID] = r.Header.Get("X-Tenant-ID")
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := &pushClient{http: srv.Client(), baseURL: srv.URL, tenantID: "acme"}
	leads := []*domain.Lead{
		{ID: "1", Name: "Ada"},
		{ID: "2", Name: "Grace"},
		{ID: "3", Name: "Reject"},
	}

	var errOut bytes.Buffer
	result := client.pushAll(context.Background(), leads, 2, &errOut)

	if result.Created != 2 || result.Failed != 1 {
		t.Errorf("expected 2 created and 1 failed, got %+v", result)
	}
	if received["1"] != "acme" || received["2"] != "acme" {
		t.Errorf("expected tenant header on every request, got %v", received)
	}
	if !strings.Contains(errOut.String(), "rejected") {
		t.Errorf("expected failure reported, got %q", errOut.String())
	}
}

func TestPushAllCancelled(t *testing.T) {
	leads := []*domain.Lead{
		{ID: "1", Name: "Ada"},
		{ID: "2", Name: "Grace"},
		{ID: "3", Name: "Linus"},
	}

	t.Run("BeforeStart", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := &pushClient{http: srv.Client(), baseURL: srv.URL, tenantID: "acme"}
		result := client.pushAll(ctx, leads, 2, nil)

		if result.Created != 0 || result.Skipped != 3 {
			t.Errorf("expected every lead skipped, got %+v", result)
		}
	})

	t.Run("MidRun", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cancel()
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := &pushClient{http: srv.Client(), baseURL: srv.URL, tenantID: "acme"}
		result := client.pushAll(ctx, leads, 1, nil)

		if result.Skipped < 1 {
			t.Errorf("expected unsent leads to be counted, got %+v", result)
		}
		if total := result.Created + result.Failed + result.Skipped; total != int64(len(leads)) {
			t.Errorf("expected %d leads accounted for, got %d (%+v)", len(leads), total, result)
		}
	})
}
