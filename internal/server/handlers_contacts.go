package server

import (
	"net/http"
	"strings"

	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/textcheck"
	"github.com/saimjr/accounting-assistant/internal/types"
)

// handleCreateContact adds a contact to one of the caller's companies
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req types.CreateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = textcheck.Sanitize(req.Name)
	req.ContactType = strings.ToLower(strings.TrimSpace(req.ContactType))
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = textcheck.Sanitize(req.Phone)
	req.Address = textcheck.Sanitize(req.Address)
	req.TaxID = textcheck.Sanitize(req.TaxID)
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	contact, err := s.store.CreateContact(r.Context(), company.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, contact)
}

// handleListContacts lists the contacts of one of the caller's companies
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	company, err := s.ownedCompany(r)
	if err != nil {
		writeError(w, err)
		return
	}

	contacts, err := s.store.ListContacts(r.Context(), company.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if contacts == nil {
		contacts = []db.Contact{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"contacts": contacts,
		"total":    len(contacts),
	})
}
