package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/opensource-finance/leadscore/internal/contact"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/scoring"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a CSV lead export locally",
	Long: `Score every lead in a CSV export without a server.

The CSV needs a header row with at least a name column. Recognised columns
are id, name, email, phone, job_title, company, industry, employees, revenue,
source, status and last_activity; any other column becomes lead metadata.

Examples:
  # Score with the built-in rules
  leadscorectl score --csv leads.csv

  # Score with a custom rule file and emit JSON
  leadscorectl score --csv leads.csv --rules rules.yaml --json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("csv", "", "path to the lead CSV export")
	f.String("rules", "", "YAML or JSON rule file (default: built-in rules)")
	f.Bool("json", false, "print scores as JSON")
	f.String("region", "US", "default region for phone numbers")
	_ = scoreCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(scoreCmd)
}

type scoreReport struct {
	Scores       []domain.LeadScore       `json:"scores"`
	Count        int                      `json:"count"`
	Distribution domain.GradeDistribution `json:"distribution"`
}

func runScore(cmd *cobra.Command, _ []string) error {
	csvPath, _ := cmd.Flags().GetString("csv")
	rulesPath, _ := cmd.Flags().GetString("rules")
	asJSON, _ := cmd.Flags().GetBool("json")
	region, _ := cmd.Flags().GetString("region")

	rs, err := loadRuleSet(rulesPath)
	if err != nil {
		return err
	}

	leads, err := readLeadsFile(csvPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvPath, err)
	}

	report := scoreLeads(leads, rs, contact.NewNormalizer(region))
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd.OutOrStdout(), leads, report)
	return nil
}

func loadRuleSet(path string) (*scoring.RuleSet, error) {
	if path == "" {
		return scoring.DefaultRuleSet(), nil
	}
	rules, err := scoring.LoadRulesFile(path)
	if err != nil {
		return nil, err
	}
	rs, err := scoring.Compile(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rules in %s: %w", path, err)
	}
	return rs, nil
}

func scoreLeads(leads []*domain.Lead, rs *scoring.RuleSet, normalizer *contact.Normalizer) scoreReport {
	scores := make([]domain.LeadScore, len(leads))
	for i, lead := range leads {
		normalizer.NormalizeLead(lead)
		scores[i] = scoring.Score(lead, rs)
	}
	return scoreReport{
		Scores:       scores,
		Count:        len(scores),
		Distribution: scoring.Distribution(scores),
	}
}

func printReport(out io.Writer, leads []*domain.Lead, report scoreReport) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSCORE\tGRADE\tNEXT ACTION")
	for i, s := range report.Scores {
		action := ""
		if len(s.Recommendations) > 0 {
			action = s.Recommendations[0].Action
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.LeadID, leads[i].Name, s.TotalScore, s.Grade, action)
	}
	tw.Flush()

	fmt.Fprintf(out, "\n%d leads:", report.Count)
	for _, g := range []domain.Grade{domain.GradeA, domain.GradeB, domain.GradeC, domain.GradeD, domain.GradeF} {
		fmt.Fprintf(out, " %s=%d", g, report.Distribution[g])
	}
	fmt.Fprintln(out)
}
