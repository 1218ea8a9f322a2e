package server

import (
	"fmt"
	"net/http"

	"github.com/saimjr/accounting-assistant/internal/types"
)

// maxBatchSize bounds POST /api/categorize-transactions.
const maxBatchSize = 100

// CategorizeBatchRequest is the body of POST /api/categorize-transactions.
type CategorizeBatchRequest struct {
	Transactions []types.CategorizeRequest `json:"transactions"`
}

// handleCategorizeTransaction categorizes a single transaction
func (s *Server) handleCategorizeTransaction(w http.ResponseWriter, r *http.Request) {
	var req types.CategorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.categorizer.Categorize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

// handleCategorizeTransactions categorizes up to maxBatchSize transactions,
// returning results in request order
func (s *Server) handleCategorizeTransactions(w http.ResponseWriter, r *http.Request) {
	var req CategorizeBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Transactions) == 0 {
		writeError(w, types.NewValidationError("transactions", "must not be empty"))
		return
	}
	if len(req.Transactions) > maxBatchSize {
		writeError(w, types.NewValidationError("transactions", fmt.Sprintf("must hold at most %d items", maxBatchSize)))
		return
	}

	results, err := s.categorizer.CategorizeBatch(r.Context(), req.Transactions)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}
