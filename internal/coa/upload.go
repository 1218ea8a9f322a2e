package coa

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/schemas"
	"github.com/saimjr/accounting-assistant/internal/types"
	"github.com/tealeg/xlsx/v2"
)

// UploadError lists every structural problem found in an uploaded chart.
type UploadError struct {
	Problems []string
	Err      error
}

func (e *UploadError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid chart of accounts upload: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid chart of accounts upload: %d problems", len(e.Problems))
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// column aliases accepted in CSV and XLSX header rows
var headerAliases = map[string]string{
	"statement_type":     "statement_type",
	"statement":          "statement_type",
	"class":              "class",
	"classification":     "classification",
	"subclassification":  "subclassification",
	"sub_classification": "subclassification",
	"account":            "account",
	"account_name":       "account",
	"name":               "account",
	"code":               "code",
	"account_code":       "code",
	"description":        "description",
}

// ParseUpload reads an uploaded chart of accounts. The format is chosen by
// the file extension: .json, .csv or .xlsx. Rows without a statement type are
// placed by code (1000-3999 financial position, 4000-9999 profit and loss).
// Codes outside their class band are accepted; callers report them with
// ValidateBanding.
func ParseUpload(filename string, data []byte) (Structure, error) {
	var (
		records []types.AccountRecord
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		records, err = parseJSONUpload(data)
	case ".csv":
		var rows [][]string
		rows, err = readCSV(data)
		if err == nil {
			records, err = recordsFromTable(rows)
		}
	case ".xlsx":
		var rows [][]string
		rows, err = readXLSX(data)
		if err == nil {
			records, err = recordsFromTable(rows)
		}
	default:
		return nil, &UploadError{Problems: []string{fmt.Sprintf("unsupported file type %q, expected .json, .csv or .xlsx", ext)}}
	}
	if err != nil {
		return nil, err
	}

	if err := checkRecords(records); err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

func parseJSONUpload(data []byte) ([]types.AccountRecord, error) {
	if err := schemas.Validate(schemas.COAUpload, data); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) {
			return nil, &UploadError{Problems: verr.Messages(), Err: err}
		}
		return nil, err
	}

	var doc struct {
		Accounts        []Entry            `json:"accounts"`
		ChartOfAccounts map[string][]Entry `json:"chart_of_accounts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &UploadError{Problems: []string{"document is not valid JSON"}, Err: err}
	}

	var records []types.AccountRecord
	for _, e := range doc.Accounts {
		rec, _ := e.Record(e.String("statement_type"))
		records = append(records, rec)
	}
	chart := Structure(doc.ChartOfAccounts)
	for _, statement := range chart.Statements() {
		for _, e := range chart[statement] {
			rec, _ := e.Record(statement)
			records = append(records, rec)
		}
	}
	return records, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &UploadError{Problems: []string{err.Error()}, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, &UploadError{Problems: []string{"file is not a readable xlsx workbook"}, Err: eris.Wrap(err, "xlsx: open")}
	}
	if len(f.Sheets) == 0 {
		return nil, &UploadError{Problems: []string{"workbook has no sheets"}}
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// recordsFromTable maps a header row plus data rows onto account records.
// Blank rows are skipped.
func recordsFromTable(rows [][]string) ([]types.AccountRecord, error) {
	if len(rows) == 0 {
		return nil, &UploadError{Problems: []string{ErrNoAccounts.Error()}, Err: ErrNoAccounts}
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		if field, ok := headerAliases[key]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}

	var missing []string
	for _, field := range []string{"account", "code"} {
		if _, ok := columns[field]; !ok {
			missing = append(missing, fmt.Sprintf("header row has no %q column", field))
		}
	}
	if len(missing) > 0 {
		return nil, &UploadError{Problems: missing}
	}

	cell := func(row []string, field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []types.AccountRecord
	for _, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		records = append(records, types.AccountRecord{
			StatementType:     cell(row, "statement_type"),
			Class:             cell(row, "class"),
			Classification:    cell(row, "classification"),
			Subclassification: cell(row, "subclassification"),
			Account:           cell(row, "account"),
			Code:              cell(row, "code"),
			Description:       cell(row, "description"),
		})
	}
	return records, nil
}

// checkRecords validates rows in place, filling inferred statement types.
func checkRecords(records []types.AccountRecord) error {
	if len(records) == 0 {
		return &UploadError{Problems: []string{ErrNoAccounts.Error()}, Err: ErrNoAccounts}
	}

	var problems []string
	seen := make(map[int]int)
	for i := range records {
		rec := &records[i]
		row := i + 1
		if rec.Account == "" {
			problems = append(problems, fmt.Sprintf("row %d: account name is required", row))
		}
		n, ok := ParseCode(rec.Code)
		if !ok {
			problems = append(problems, fmt.Sprintf("row %d: code %q is not a 4-digit number between 1000 and 9999", row, rec.Code))
			continue
		}
		if first, dup := seen[n]; dup {
			problems = append(problems, fmt.Sprintf("row %d: code %s duplicates row %d", row, rec.Code, first))
			continue
		}
		seen[n] = row
		if rec.StatementType == "" {
			rec.StatementType = StatementForCode(n)
		}
	}

	if len(problems) > 0 {
		return &UploadError{Problems: problems}
	}
	return nil
}

// StatementForCode returns the statement an account code belongs to by
// default.
func StatementForCode(code int) string {
	if code < 4000 {
		return types.StatementFinancialPosition
	}
	return types.StatementProfitAndLoss
}
