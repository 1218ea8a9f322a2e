package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/coa"
	"github.com/saimjr/accounting-assistant/internal/types"
	"go.uber.org/zap"
)

// maxUploadSize bounds chart of accounts uploads.
const maxUploadSize = 10 << 20

// GenerateCOAResponse is the envelope of a stored generation.
type GenerateCOAResponse struct {
	*coa.Envelope
	CompanyID      uuid.UUID `json:"company_id"`
	StoredAccounts int       `json:"stored_accounts"`
}

// UploadCOAResponse reports an accepted chart of accounts upload.
type UploadCOAResponse struct {
	Status         string             `json:"status"`
	Message        string             `json:"message"`
	Filename       string             `json:"filename"`
	CompanyID      uuid.UUID          `json:"company_id"`
	StoredAccounts int                `json:"stored_accounts"`
	BandingIssues  []coa.BandingIssue `json:"banding_issues"`
}

// handleGenerateCOA runs the pipeline for a stored company and replaces its
// chart of accounts with the result
func (s *Server) handleGenerateCOA(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}

	env, err := s.generator.Generate(r.Context(), company.CompanyProfile)
	if err != nil {
		writeError(w, err)
		return
	}

	stored, err := s.store.ReplaceChartOfAccounts(r.Context(), company.ID, env.Records())
	if err != nil {
		writeError(w, err)
		return
	}

	zap.L().Info("chart of accounts generated",
		zap.String("company_id", company.ID.String()),
		zap.String("status", env.Status),
		zap.String("method", env.Metadata.GenerationMethod),
		zap.Int("stored_accounts", stored),
	)

	jsonResponse(w, http.StatusOK, GenerateCOAResponse{
		Envelope:       env,
		CompanyID:      company.ID,
		StoredAccounts: stored,
	})
}

// handleGetCOA returns the stored chart of accounts of a company
func (s *Server) handleGetCOA(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}

	accounts, err := s.store.ListChartOfAccounts(r.Context(), company.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	records := make([]types.AccountRecord, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, a.AccountRecord)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"company_id":        company.ID,
		"chart_of_accounts": coa.FromRecords(records),
		"total_accounts":    len(records),
	})
}

// handleUploadCOA replaces a company's chart of accounts with an uploaded
// JSON, CSV or XLSX file
func (s *Server) handleUploadCOA(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid multipart upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	chart, err := coa.ParseUpload(header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	issues := coa.ValidateBanding(chart)

	stored, err := s.store.ReplaceChartOfAccounts(r.Context(), company.ID, chart.Records())
	if err != nil {
		writeError(w, err)
		return
	}

	zap.L().Info("chart of accounts uploaded",
		zap.String("company_id", company.ID.String()),
		zap.String("filename", header.Filename),
		zap.Int("stored_accounts", stored),
		zap.Int("banding_issues", len(issues)),
	)

	if issues == nil {
		issues = []coa.BandingIssue{}
	}
	jsonResponse(w, http.StatusOK, UploadCOAResponse{
		Status:         types.StatusSuccess,
		Message:        "Chart of Accounts uploaded successfully",
		Filename:       header.Filename,
		CompanyID:      company.ID,
		StoredAccounts: stored,
		BandingIssues:  issues,
	})
}

// handleLegacyGenerate generates a chart of accounts from a company type,
// size and industry, filling the rest of the profile with defaults. Nothing
// is stored. An empty body selects every default.
func (s *Server) handleLegacyGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.LegacyGenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	profile := req.Profile()
	if err := profile.Validate(); err != nil {
		writeError(w, err)
		return
	}

	env, err := s.generator.Generate(r.Context(), profile)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, env)
}
