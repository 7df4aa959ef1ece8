package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Import a CSV lead export into a leadscore server",
	Long: `Create or update every lead of a CSV export through POST /leads.

Examples:
  leadscorectl push --csv leads.csv --tenant acme
  leadscorectl push --csv leads.csv --url http://leadscore:8080 --tenant acme --workers 20`,
	RunE: runPush,
}

func init() {
	f := pushCmd.Flags()
	f.String("csv", "", "path to the lead CSV export")
	f.String("url", "http://localhost:8080", "leadscore base URL")
	f.String("tenant", "", "tenant ID sent as X-Tenant-ID")
	f.Int("workers", 10, "number of concurrent requests")
	f.Bool("verbose", false, "print each failed lead")
	_ = pushCmd.MarkFlagRequired("csv")
	_ = pushCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(pushCmd)
}

// pushResult counts outcomes of a push run. Skipped leads were never
// sent because the run was interrupted.
type pushResult struct {
	Created int64
	Failed  int64
	Skipped int64
}

func runPush(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	csvPath, _ := cmd.Flags().GetString("csv")
	baseURL, _ := cmd.Flags().GetString("url")
	tenantID, _ := cmd.Flags().GetString("tenant")
	workers, _ := cmd.Flags().GetInt("workers")
	verbose, _ := cmd.Flags().GetBool("verbose")

	leads, err := readLeadsFile(csvPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvPath, err)
	}

	client := &pushClient{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
	}
	if err := client.checkHealth(ctx); err != nil {
		return fmt.Errorf("leadscore not reachable at %s: %w", baseURL, err)
	}

	start := time.Now()
	var errOut io.Writer
	if verbose {
		errOut = cmd.ErrOrStderr()
	}
	result := client.pushAll(ctx, leads, workers, errOut)

	fmt.Fprintf(cmd.OutOrStdout(), "pushed %d leads (%d failed, %d not sent) in %v\n",
		result.Created, result.Failed, result.Skipped, time.Since(start).Round(time.Millisecond))
	if result.Skipped > 0 {
		return fmt.Errorf("push interrupted with %d leads not sent: %w", result.Skipped, ctx.Err())
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d leads failed", result.Failed)
	}
	return nil
}

type pushClient struct {
	http     *http.Client
	baseURL  string
	tenantID string
}

func (c *pushClient) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// pushAll posts leads from a fixed pool of workers. Failures are written to
// errOut when it is non-nil.
func (c *pushClient) pushAll(ctx context.Context, leads []*domain.Lead, workers int, errOut io.Writer) pushResult {
	if workers < 1 {
		workers = 1
	}

	var result pushResult
	var mu sync.Mutex
	work := make(chan *domain.Lead)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for lead := range work {
				if err := c.pushLead(ctx, lead); err != nil {
					atomic.AddInt64(&result.Failed, 1)
					if errOut != nil {
						mu.Lock()
						fmt.Fprintf(errOut, "ERROR: %s -> %v\n", lead.ID, err)
						mu.Unlock()
					}
					continue
				}
				atomic.AddInt64(&result.Created, 1)
			}
		}()
	}

	sent := 0
	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}
		select {
		case work <- lead:
			sent++
		case <-ctx.Done():
		}
	}
	close(work)
	wg.Wait()

	result.Skipped = int64(len(leads) - sent)
	return result
}

func (c *pushClient) pushLead(ctx context.Context, lead *domain.Lead) error {
	body, err := json.Marshal(domain.LeadRequest{
		ID:           lead.ID,
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		JobTitle:     lead.JobTitle,
		Company:      lead.Company,
		Industry:     lead.Industry,
		Employees:    lead.Employees,
		Revenue:      lead.Revenue,
		Source:       lead.Source,
		Status:       lead.Status,
		LastActivity: lead.LastActivity,
		Metadata:     lead.Metadata,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/leads", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", c.tenantID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}
	return nil
}
