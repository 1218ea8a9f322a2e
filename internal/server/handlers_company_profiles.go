package server

import (
	"net/http"

	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/server/middleware"
	"github.com/saimjr/accounting-assistant/internal/textcheck"
	"github.com/saimjr/accounting-assistant/internal/types"
	"go.uber.org/zap"
)

// handleCreateCompanyProfile stores a company owned by the caller
func (s *Server) handleCreateCompanyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var profile types.CompanyProfile
	if !decodeJSON(w, r, &profile) {
		return
	}
	profile.CompanyName = textcheck.Sanitize(profile.CompanyName)
	profile.NatureOfBusiness = textcheck.Sanitize(profile.NatureOfBusiness)
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		writeError(w, err)
		return
	}

	company, err := s.store.CreateCompanyProfile(r.Context(), userID, profile)
	if err != nil {
		writeError(w, err)
		return
	}

	zap.L().Info("company profile created",
		zap.String("company_id", company.ID.String()),
		zap.String("company", company.CompanyName),
	)
	jsonResponse(w, http.StatusCreated, company)
}

// handleListCompanyProfiles lists the caller's companies
func (s *Server) handleListCompanyProfiles(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	companies, err := s.store.ListCompanyProfiles(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if companies == nil {
		companies = []db.CompanyProfile{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"company_profiles": companies,
		"total":            len(companies),
	})
}

// handleGetCompanyProfile returns one of the caller's companies
func (s *Server) handleGetCompanyProfile(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, company)
}

// handleDeleteCompanyProfile deletes a company together with its accounts,
// contacts and transactions
func (s *Server) handleDeleteCompanyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	companyID, err := pathUUID(r, "company_id")
	if err != nil {
		writeError(w, err)
		return
	}

	deleted, err := s.store.DeleteCompanyProfile(r.Context(), userID, companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, &ErrCompanyNotFound{CompanyID: companyID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
