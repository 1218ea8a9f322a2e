package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/textcheck"
	"github.com/saimjr/accounting-assistant/internal/types"
)

// CreateTransactionResponse reports a stored transaction and, when the
// category was assigned by the server, how it was chosen.
type CreateTransactionResponse struct {
	Status         string                      `json:"status"`
	TransactionID  uuid.UUID                   `json:"transaction_id"`
	Transaction    *db.Transaction             `json:"transaction"`
	Categorization *types.CategorizationResult `json:"categorization,omitempty"`
}

// handleCreateTransaction records a transaction, categorizing it first when
// no category is given
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req types.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Description = textcheck.Sanitize(req.Description)
	req.TransactionType = strings.ToLower(strings.TrimSpace(req.TransactionType))
	req.Category = textcheck.Sanitize(req.Category)
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	company, err := s.companyForUser(r, req.CompanyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.ContactID != nil {
		if err := s.checkContact(r.Context(), company.ID, *req.ContactID); err != nil {
			writeError(w, err)
			return
		}
	}

	in := db.TransactionInput{
		CompanyID:       company.ID,
		ContactID:       req.ContactID,
		Description:     req.Description,
		Amount:          req.Amount,
		TransactionType: req.TransactionType,
		Category:        req.Category,
		AccountCode:     req.AccountCode,
		Date:            time.Now().UTC(),
	}
	if req.Date != nil {
		in.Date = req.Date.UTC()
	}

	var categorization *types.CategorizationResult
	if in.Category == "" {
		categorization, err = s.categorizer.Categorize(r.Context(), types.CategorizeRequest{
			Description:     in.Description,
			Amount:          in.Amount.InexactFloat64(),
			TransactionType: in.TransactionType,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		in.Category = categorization.Category
		if in.AccountCode == "" {
			in.AccountCode, err = s.resolveAccountCode(r.Context(), company.ID, categorization)
			if err != nil {
				writeError(w, err)
				return
			}
		}
	}

	txn, err := s.store.CreateTransaction(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, CreateTransactionResponse{
		Status:         types.StatusSuccess,
		TransactionID:  txn.ID,
		Transaction:    txn,
		Categorization: categorization,
	})
}

// handleListTransactions lists the transactions of one of the caller's companies
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}

	txns, err := s.store.ListTransactions(r.Context(), company.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if txns == nil {
		txns = []db.Transaction{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        len(txns),
	})
}

// resolveAccountCode prefers the code of the company's own account named like
// the assigned category.
func (s *Server) resolveAccountCode(ctx context.Context, companyID uuid.UUID, result *types.CategorizationResult) (string, error) {
	accounts, err := s.store.ListChartOfAccounts(ctx, companyID)
	if err != nil {
		return "", err
	}
	for _, a := range accounts {
		if a.IsActive && strings.EqualFold(strings.TrimSpace(a.Account), result.Category) {
			return a.Code, nil
		}
	}
	return result.AccountCode, nil
}

func (s *Server) checkContact(ctx context.Context, companyID, contactID uuid.UUID) error {
	contacts, err := s.store.ListContacts(ctx, companyID)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		if c.ID == contactID {
			return nil
		}
	}
	return types.NewValidationError("contact_id", "is not a contact of this company")
}
