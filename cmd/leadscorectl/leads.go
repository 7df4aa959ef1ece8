package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// columnAliases maps accepted CSV headers to lead fields. Unknown columns
// land in metadata under their header name.
var columnAliases = map[string]string{
	"id":            "id",
	"lead_id":       "id",
	"name":          "name",
	"full_name":     "name",
	"email":         "email",
	"phone":         "phone",
	"job_title":     "jobTitle",
	"jobtitle":      "jobTitle",
	"title":         "jobTitle",
	"company":       "company",
	"industry":      "industry",
	"employees":     "employees",
	"revenue":       "revenue",
	"source":        "source",
	"status":        "status",
	"last_activity": "lastActivity",
	"lastactivity":  "lastActivity",
}

// readLeadsFile reads a CSV lead export.
func readLeadsFile(path string) ([]*domain.Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLeads(f)
}

// readLeads parses CSV with a header row. Empty cells are treated as
// missing values.
func readLeads(r io.Reader) ([]*domain.Lead, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make([]string, len(header))
	hasName := false
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		if field, ok := columnAliases[key]; ok {
			columns[i] = field
			hasName = hasName || field == "name"
			continue
		}
		columns[i] = "metadata." + strings.TrimSpace(col)
	}
	if !hasName {
		return nil, errors.New("csv must have a name column")
	}

	var leads []*domain.Lead
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		lead, err := parseLead(columns, record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if lead.ID == "" {
			lead.ID = fmt.Sprintf("row-%d", line-1)
		}
		leads = append(leads, lead)
	}

	return leads, nil
}

func parseLead(columns, record []string) (*domain.Lead, error) {
	lead := &domain.Lead{Status: domain.LeadStatusNew}

	for i, raw := range record {
		value := strings.TrimSpace(raw)
		if value == "" || i >= len(columns) {
			continue
		}

		switch col := columns[i]; col {
		case "id":
			lead.ID = value
		case "name":
			lead.Name = value
		case "email":
			lead.Email = value
		case "phone":
			lead.Phone = value
		case "jobTitle":
			lead.JobTitle = value
		case "company":
			lead.Company = value
		case "industry":
			lead.Industry = value
		case "source":
			lead.Source = value
		case "status":
			lead.Status = value
		case "employees":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("employees %q is not an integer", value)
			}
			lead.Employees = &n
		case "revenue":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("revenue %q is not a number", value)
			}
			lead.Revenue = &f
		case "lastActivity":
			t, err := parseTime(value)
			if err != nil {
				return nil, err
			}
			lead.LastActivity = &t
		default:
			if lead.Metadata == nil {
				lead.Metadata = make(map[string]any)
			}
			lead.Metadata[strings.TrimPrefix(col, "metadata.")] = metadataValue(value)
		}
	}

	if lead.Name == "" {
		return nil, errors.New("name is required")
	}
	return lead, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("last activity %q is not a date", value)
}

// metadataValue keeps numbers and booleans typed so numeric rules and
// expressions see them as such.
func metadataValue(value string) any {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
