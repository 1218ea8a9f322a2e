// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/saimjr/accounting-assistant/internal/coa"
	"github.com/saimjr/accounting-assistant/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCompanyProfile outputs the profile a chart is generated for.
func (p *Printer) PrintCompanyProfile(profile *types.CompanyProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:    %s\n", profile.CompanyName))
	sb.WriteString(fmt.Sprintf("Industry:   %s\n", profile.Industry))
	sb.WriteString(fmt.Sprintf("Type:       %s\n", profile.CompanyType))
	sb.WriteString(fmt.Sprintf("Location:   %s\n", profile.Location))
	sb.WriteString(fmt.Sprintf("Framework:  %s\n", profile.ReportingFramework))
	sb.WriteString(fmt.Sprintf("Compliance: %s", profile.ComplianceList()))

	p.printBox("COMPANY PROFILE", sb.String())
}

// PrintEnvelope outputs the stage sources and account totals of a generation.
func (p *Printer) PrintEnvelope(env *coa.Envelope) {
	if env == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", env.Status))
	sb.WriteString(fmt.Sprintf("Method:   %s\n", env.Metadata.GenerationMethod))
	if env.Metadata.AIModel != "" {
		sb.WriteString(fmt.Sprintf("Model:    %s\n", env.Metadata.AIModel))
	}
	sb.WriteString(fmt.Sprintf("Accounts: %d\n", env.Metadata.TotalAccounts))

	if len(env.WorkflowSteps) > 0 {
		sb.WriteString("\nStages:\n")
		for i, step := range env.WorkflowSteps {
			marker := "✓"
			if step.Source == coa.SourceFallback {
				marker = "↺"
			}
			sb.WriteString(fmt.Sprintf("  %d. %s %s (%s)\n", i+1, marker, step.Stage, step.Source))
		}
	}

	statements := env.ChartOfAccounts.Statements()
	if len(statements) > 0 {
		sb.WriteString("\nStatements:\n")
		for _, statement := range statements {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", statement, len(env.ChartOfAccounts[statement])))
		}
	}

	p.printBox("CHART OF ACCOUNTS", strings.TrimSuffix(sb.String(), "\n"))
	p.PrintBandingIssues(env.BandingIssues)
}

// PrintBandingIssues outputs accounts whose codes fell outside their band.
func (p *Printer) PrintBandingIssues(issues []coa.BandingIssue) {
	if len(issues) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d banding issue(s):\n\n", len(issues)))

	count := min(len(issues), maxItemsToShow)
	for _, issue := range issues[:count] {
		line := fmt.Sprintf("  %s %s: %s", issue.Code, issue.Account, issue.Action)
		if issue.NewCode != "" {
			line += " → " + issue.NewCode
		}
		sb.WriteString(line + "\n")
	}
	if len(issues) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(issues)-maxItemsToShow))
	}

	p.printBox("BANDING ISSUES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCategorizations outputs a category summary of categorized transactions.
func (p *Printer) PrintCategorizations(results []types.CategorizationResult) {
	if len(results) == 0 {
		return
	}

	counts := make(map[string]int)
	var order []string
	fallbacks := 0
	for _, r := range results {
		key := r.AccountCode + " " + r.Category
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
		if r.Status == types.StatusFallback {
			fallbacks++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Transactions: %d (%d by keyword fallback)\n\n", len(results), fallbacks))
	count := min(len(order), maxItemsToShow)
	for _, key := range order[:count] {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", key, counts[key]))
	}
	if len(order) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more categories\n", len(order)-maxItemsToShow))
	}

	p.printBox("CATEGORIZATION", strings.TrimSuffix(sb.String(), "\n"))
}
