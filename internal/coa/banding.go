package coa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saimjr/accounting-assistant/internal/types"
)

// Band is an inclusive range of account codes reserved for one kind of account.
type Band struct {
	Name string
	Min  int
	Max  int
}

// Contains reports whether code lies in the band.
func (b Band) Contains(code int) bool {
	return code >= b.Min && code <= b.Max
}

func (b Band) String() string {
	return fmt.Sprintf("%d-%d %s", b.Min, b.Max, b.Name)
}

// Account code bands.
var (
	BandAssets            = Band{Name: "assets", Min: 1000, Max: 1999}
	BandLiabilities       = Band{Name: "liabilities", Min: 2000, Max: 2999}
	BandEquity            = Band{Name: "equity", Min: 3000, Max: 3999}
	BandRevenue           = Band{Name: "revenue", Min: 4000, Max: 4999}
	BandCOGS              = Band{Name: "cost of goods sold", Min: 5000, Max: 5999}
	BandOperatingExpenses = Band{Name: "operating expenses", Min: 6000, Max: 8999}
	BandNonOperating      = Band{Name: "non-operating items", Min: 9000, Max: 9999}
	// BandExpenses covers every expense band when only "expenses" is known.
	BandExpenses = Band{Name: "expenses", Min: 5000, Max: 9999}
)

// Remediation is applied to accounts whose code is malformed, duplicated or
// outside the band of their class.
type Remediation string

// Remediation policies.
const (
	RemediationReassign Remediation = "reassign"
	RemediationReject   Remediation = "reject"
	RemediationFlag     Remediation = "flag"
)

// Issue actions.
const (
	ActionReassigned = "reassigned"
	ActionRejected   = "rejected"
	ActionFlagged    = "flagged"
)

// BandingIssue describes one account that failed the code checks.
type BandingIssue struct {
	StatementType string `json:"statement_type"`
	Account       string `json:"account"`
	Code          string `json:"code"`
	ExpectedBand  string `json:"expected_band,omitempty"`
	Reason        string `json:"reason"`
	Action        string `json:"action"`
	NewCode       string `json:"new_code,omitempty"`
}

// ResolveBand returns the band implied by a record's class, falling back to
// its classification and subclassification when the class is ambiguous
// (e.g. "Equity and Liabilities") or unknown.
func ResolveBand(rec types.AccountRecord) (Band, bool) {
	for _, label := range []string{rec.Class, rec.Classification, rec.Subclassification} {
		if band, ok := bandForLabel(label); ok {
			return band, true
		}
	}
	return Band{}, false
}

func bandForLabel(label string) (Band, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return Band{}, false
	case strings.Contains(l, "equity and liabilities"), strings.Contains(l, "liabilities and equity"):
		return Band{}, false
	case strings.Contains(l, "cost of goods"), strings.Contains(l, "cost of sales"), strings.Contains(l, "cost of revenue"):
		return BandCOGS, true
	case strings.Contains(l, "non-operating"), strings.Contains(l, "non operating"):
		return BandNonOperating, true
	case strings.Contains(l, "liabilit"), strings.Contains(l, "payable"):
		return BandLiabilities, true
	case strings.Contains(l, "equity"), strings.Contains(l, "share capital"), strings.Contains(l, "reserves"):
		return BandEquity, true
	case strings.Contains(l, "asset"), strings.Contains(l, "receivable"), strings.Contains(l, "cash"), strings.Contains(l, "inventor"):
		return BandAssets, true
	case strings.Contains(l, "operating expense"):
		return BandOperatingExpenses, true
	case strings.Contains(l, "expense"), strings.Contains(l, "expenditure"):
		return BandExpenses, true
	case strings.Contains(l, "revenue"), strings.Contains(l, "income"), strings.Contains(l, "sales"):
		return BandRevenue, true
	}
	return Band{}, false
}

// ParseCode returns the numeric value of a 4-digit account code in 1000-9999.
func ParseCode(code string) (int, bool) {
	if len(code) != 4 {
		return 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 1000 || n > 9999 {
		return 0, false
	}
	return n, true
}

// ValidateBanding reports every malformed, duplicated or out-of-band account
// without changing the chart.
func ValidateBanding(chart Structure) []BandingIssue {
	_, issues := EnforceBanding(chart, RemediationFlag)
	return issues
}

// EnforceBanding checks every account entry of chart and applies remediation
// to the ones that fail. It returns a new structure; chart is not modified.
// Valid codes held as numbers are normalised to strings.
func EnforceBanding(chart Structure, remediation Remediation) (Structure, []BandingIssue) {
	out := chart.Clone()

	used := make(map[int]bool)
	for _, entries := range out {
		for _, e := range entries {
			if n, ok := ParseCode(e.String("code")); ok && e.Has("account") {
				used[n] = true
			}
		}
	}

	var issues []BandingIssue
	seen := make(map[int]bool)
	for _, statement := range out.Statements() {
		kept := out[statement][:0]
		for _, e := range out[statement] {
			rec, isAccount := e.Record(statement)
			if !e.Has("account") {
				kept = append(kept, e)
				continue
			}
			if !isAccount {
				rec = types.AccountRecord{StatementType: statement, Account: e.String("account")}
			}

			band, hasBand := ResolveBand(rec)
			n, wellFormed := ParseCode(rec.Code)

			var reason string
			switch {
			case !wellFormed:
				reason = fmt.Sprintf("code %q is not a 4-digit number between 1000 and 9999", rec.Code)
			case seen[n]:
				reason = fmt.Sprintf("code %s is already used", rec.Code)
			case hasBand && !band.Contains(n):
				reason = fmt.Sprintf("code %s is outside the %s band", rec.Code, band)
			}

			if reason == "" {
				seen[n] = true
				e["code"] = rec.Code
				kept = append(kept, e)
				continue
			}

			issue := BandingIssue{
				StatementType: statement,
				Account:       rec.Account,
				Code:          rec.Code,
				Reason:        reason,
			}
			if hasBand {
				issue.ExpectedBand = band.String()
			}

			switch remediation {
			case RemediationFlag:
				issue.Action = ActionFlagged
				if wellFormed {
					seen[n] = true
				}
				kept = append(kept, e)
			case RemediationReassign:
				target := band
				if !hasBand && wellFormed {
					// Duplicate with no known class: keep it in the band of its thousand.
					target = Band{Name: "same thousand", Min: n / 1000 * 1000, Max: n/1000*1000 + 999}
					hasBand = true
				}
				if next, ok := nextFreeCode(target, used); hasBand && ok {
					code := strconv.Itoa(next)
					used[next] = true
					seen[next] = true
					e["code"] = code
					issue.Action = ActionReassigned
					issue.NewCode = code
					kept = append(kept, e)
				} else {
					issue.Action = ActionRejected
				}
			default:
				issue.Action = ActionRejected
			}
			issues = append(issues, issue)
		}
		out[statement] = kept
	}

	return out, issues
}

func nextFreeCode(band Band, used map[int]bool) (int, bool) {
	if band.Min == 0 {
		return 0, false
	}
	for code := band.Min; code <= band.Max; code++ {
		if !used[code] {
			return code, true
		}
	}
	return 0, false
}
