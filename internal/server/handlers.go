package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/server/middleware"
	"github.com/saimjr/accounting-assistant/internal/textcheck"
	"github.com/saimjr/accounting-assistant/internal/types"
	"go.uber.org/zap"
)

// AI availability reported by the health endpoint.
const (
	AIStatusEnabled  = "ai_enabled"
	AIStatusFallback = "fallback_mode"
)

// maxJSONBody bounds request bodies other than uploads.
const maxJSONBody = 1 << 20

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	APIVersion string    `json:"api_version"`
	AIStatus   string    `json:"ai_status"`
	Model      string    `json:"model,omitempty"`
	Store      string    `json:"store"`
	Database   string    `json:"database"`
}

// ValidateInputRequest is the body of POST /api/validate-input. input_text is
// accepted as an alias of text.
type ValidateInputRequest struct {
	Text      string `json:"text"`
	InputText string `json:"input_text"`
	Context   string `json:"context"`
}

// handleRoot returns the service banner
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"message":      "Accounting Assistant API",
		"status":       "running",
		"version":      Version,
		"ai_available": s.aiStatus() == AIStatusEnabled,
	})
}

// handleHealth reports store connectivity and whether model calls are enabled
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		APIVersion: Version,
		AIStatus:   s.aiStatus(),
		Model:      s.llm.Model(llm.TierAdvanced),
		Store:      s.store.Driver(),
		Database:   "connected",
	}

	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		zap.L().Warn("health check: store unreachable", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	jsonResponse(w, status, resp)
}

func (s *Server) aiStatus() string {
	if _, disabled := s.llm.(*llm.DisabledClient); disabled {
		return AIStatusFallback
	}
	return AIStatusEnabled
}

// handleValidateInput spell-checks accounting text
func (s *Server) handleValidateInput(w http.ResponseWriter, r *http.Request) {
	var req ValidateInputRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text := req.Text
	if text == "" {
		text = req.InputText
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, types.NewValidationError("text", "is required"))
		return
	}

	jsonResponse(w, http.StatusOK, textcheck.Check(text, req.Context))
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathUUID parses a UUID route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, types.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// ownedCompany loads the company named by the company_id route parameter,
// reporting companies of other users as missing.
func (s *Server) ownedCompany(r *http.Request) (*db.CompanyProfile, error) {
	companyID, err := pathUUID(r, "company_id")
	if err != nil {
		return nil, err
	}
	return s.companyForUser(r, companyID)
}

func (s *Server) companyForUser(r *http.Request, companyID uuid.UUID) (*db.CompanyProfile, error) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return nil, err
	}

	company, err := s.store.GetCompanyProfile(r.Context(), userID, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &ErrCompanyNotFound{CompanyID: companyID}
	}
	return company, nil
}
