package coa

import "github.com/saimjr/accounting-assistant/internal/types"

const (
	pl   = types.StatementProfitAndLoss
	sofp = types.StatementFinancialPosition
)

func entry(kv ...string) Entry {
	e := make(Entry, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		e[kv[i]] = kv[i+1]
	}
	return e
}

// Fallback returns the static value substituted for a failed stage. Each call
// returns a fresh structure and no stage's fallback depends on another's.
func Fallback(stage Stage) Structure {
	switch stage {
	case StageStatements:
		return Structure{
			pl:   {},
			sofp: {},
		}
	case StageClasses:
		return Structure{
			pl: {
				entry("class", "Revenue"),
				entry("class", "Expenses"),
			},
			sofp: {
				entry("class", "Assets"),
				entry("class", "Equity and Liabilities"),
			},
		}
	case StageClassifications:
		return Structure{
			pl: {
				entry("class", "Revenue", "classification", "Operating Revenue"),
				entry("class", "Revenue", "classification", "Non-Operating Revenue"),
				entry("class", "Expenses", "classification", "Operating Expenses"),
				entry("class", "Expenses", "classification", "Non-Operating Expenses"),
			},
			sofp: {
				entry("class", "Assets", "classification", "Current Assets"),
				entry("class", "Assets", "classification", "Non-Current Assets"),
				entry("class", "Equity and Liabilities", "classification", "Equity"),
				entry("class", "Equity and Liabilities", "classification", "Current Liabilities"),
				entry("class", "Equity and Liabilities", "classification", "Non-Current Liabilities"),
			},
		}
	case StageSubclassifications:
		return Structure{
			pl: {
				entry("class", "Revenue", "classification", "Operating Revenue", "subclassification", "Sales Revenue"),
				entry("class", "Expenses", "classification", "Operating Expenses", "subclassification", "General Expenses"),
			},
			sofp: {
				entry("class", "Assets", "classification", "Current Assets", "subclassification", "Cash and Cash Equivalents"),
				entry("class", "Assets", "classification", "Current Assets", "subclassification", "Trade Receivables"),
				entry("class", "Equity and Liabilities", "classification", "Equity", "subclassification", "Share Capital"),
				entry("class", "Equity and Liabilities", "classification", "Current Liabilities", "subclassification", "Trade Payables"),
			},
		}
	case StageAccounts:
		return Structure{
			sofp: {
				entry("class", "Assets", "classification", "Current Assets", "subclassification", "Cash and Cash Equivalents",
					"account", "Cash in Hand", "code", "1001", "description", "Physical cash held by the company"),
			},
			pl: {
				entry("class", "Revenue", "classification", "Operating Revenue", "subclassification", "Sales Revenue",
					"account", "Sales Revenue", "code", "4001", "description", "Revenue from primary business operations"),
			},
		}
	default:
		return Structure{}
	}
}

// SkeletonChart is the fixed seven-account chart returned when generation
// cannot use the model at all.
func SkeletonChart() Structure {
	return Structure{
		sofp: {
			entry("class", "Assets", "classification", "Current Assets", "subclassification", "Cash and Cash Equivalents",
				"account", "Cash in Hand", "code", "1001", "description", "Physical cash held by the company"),
			entry("class", "Assets", "classification", "Current Assets", "subclassification", "Cash and Cash Equivalents",
				"account", "Bank Account - Current", "code", "1002", "description", "Primary current account with bank"),
			entry("class", "Assets", "classification", "Current Assets", "subclassification", "Trade Receivables",
				"account", "Accounts Receivable", "code", "1101", "description", "Amounts owed by customers"),
			entry("class", "Equity and Liabilities", "classification", "Current Liabilities", "subclassification", "Trade Payables",
				"account", "Accounts Payable", "code", "2001", "description", "Amounts owed to suppliers"),
			entry("class", "Equity and Liabilities", "classification", "Equity", "subclassification", "Share Capital",
				"account", "Ordinary Share Capital", "code", "3001", "description", "Capital contributed by shareholders"),
		},
		pl: {
			entry("classification", "Revenue", "subclassification", "Operating Revenue",
				"account", "Sales Revenue", "code", "4001", "description", "Revenue from primary business operations"),
			entry("classification", "Expenses", "subclassification", "Operating Expenses",
				"account", "General Expenses", "code", "6001", "description", "General operating expenses"),
		},
	}
}
