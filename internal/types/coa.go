package types

// Statement keys used throughout the chart of accounts.
const (
	StatementProfitAndLoss        = "statementOfProfitAndLoss"
	StatementFinancialPosition    = "statementOfFinancialPosition"
	StatementCashFlows            = "statementOfCashFlows"
	StatementChangesInEquity      = "statementOfChangesInEquity"
	StatementFinancialPerformance = "statementOfFinancialPerformance"
)

// AccountRecord is one leaf account of a chart of accounts.
type AccountRecord struct {
	StatementType     string `json:"statement_type"`
	Class             string `json:"class,omitempty"`
	Classification    string `json:"classification,omitempty"`
	Subclassification string `json:"subclassification,omitempty"`
	Account           string `json:"account"`
	Code              string `json:"code"`
	Description       string `json:"description,omitempty"`
}
