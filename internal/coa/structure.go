// Package coa generates, validates and parses charts of accounts.
//
// Generation runs five dependent model calls (statements, classes,
// classifications, subclassifications, accounts). Every stage has a static
// fallback so a generation request always completes, and the final chart is
// checked against the account code bands before it is returned.
package coa

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/saimjr/accounting-assistant/internal/types"
)

// Entry is one node of a statement's structure as returned by the model or a
// fallback table. Keys are kept as returned so that presence checks ("account",
// "code") see exactly what the model produced.
type Entry map[string]any

// Has reports whether the entry carries key.
func (e Entry) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// String returns the value of key rendered as text. Numbers are formatted
// without exponent; missing and null values are "".
func (e Entry) String(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Record converts an account entry into an AccountRecord. The second result
// is false unless the entry has both an "account" and a "code" key.
func (e Entry) Record(statement string) (types.AccountRecord, bool) {
	if !e.Has("account") || !e.Has("code") {
		return types.AccountRecord{}, false
	}
	return types.AccountRecord{
		StatementType:     statement,
		Class:             e.String("class"),
		Classification:    e.String("classification"),
		Subclassification: e.String("subclassification"),
		Account:           e.String("account"),
		Code:              e.String("code"),
		Description:       e.String("description"),
	}, true
}

// Structure maps a statement key to its entries. It is the value produced by
// every pipeline stage and the shape of the final chart of accounts.
type Structure map[string][]Entry

// Statements returns the statement keys in sorted order.
func (s Structure) Statements() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CountAccounts counts entries that contain an "account" key.
func (s Structure) CountAccounts() int {
	n := 0
	for _, entries := range s {
		for _, e := range entries {
			if e.Has("account") {
				n++
			}
		}
	}
	return n
}

// Records returns one AccountRecord per entry holding both "account" and
// "code", ordered by statement key then position.
func (s Structure) Records() []types.AccountRecord {
	var records []types.AccountRecord
	for _, statement := range s.Statements() {
		for _, e := range s[statement] {
			if rec, ok := e.Record(statement); ok {
				records = append(records, rec)
			}
		}
	}
	return records
}

// Clone returns a copy that shares no maps or slices with s.
func (s Structure) Clone() Structure {
	if s == nil {
		return nil
	}
	out := make(Structure, len(s))
	for statement, entries := range s {
		copied := make([]Entry, len(entries))
		for i, e := range entries {
			ce := make(Entry, len(e))
			for k, v := range e {
				ce[k] = v
			}
			copied[i] = ce
		}
		out[statement] = copied
	}
	return out
}

// FromRecords builds a chart structure from flat account records.
func FromRecords(records []types.AccountRecord) Structure {
	out := Structure{}
	for _, r := range records {
		e := Entry{"account": r.Account, "code": r.Code}
		if r.Class != "" {
			e["class"] = r.Class
		}
		if r.Classification != "" {
			e["classification"] = r.Classification
		}
		if r.Subclassification != "" {
			e["subclassification"] = r.Subclassification
		}
		if r.Description != "" {
			e["description"] = r.Description
		}
		out[r.StatementType] = append(out[r.StatementType], e)
	}
	return out
}
