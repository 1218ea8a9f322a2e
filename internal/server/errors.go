// Package server provides the HTTP REST API for the accounting assistant.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/saimjr/accounting-assistant/internal/coa"
	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/types"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrCompanyNotFound indicates the company does not exist or belongs to another user
type ErrCompanyNotFound struct {
	CompanyID uuid.UUID
}

func (e *ErrCompanyNotFound) Error() string {
	return fmt.Sprintf("company profile not found: %s", e.CompanyID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailErr    *ErrEmailAlreadyExists
		credErr     *ErrInvalidCredentials
		mismatchErr *ErrPasswordMismatch
		userErr     *ErrUserNotFound
		companyErr  *ErrCompanyNotFound
		validErr    *types.ValidationError
		pipelineErr *coa.PipelineError
		uploadErr   *coa.UploadError
		persistErr  *db.PersistenceError
	)

	switch {
	case errors.As(err, &emailErr):
		return http.StatusConflict
	case errors.As(err, &credErr), errors.As(err, &mismatchErr):
		return http.StatusUnauthorized
	case errors.As(err, &userErr), errors.As(err, &companyErr):
		return http.StatusNotFound
	case errors.As(err, &pipelineErr), errors.As(err, &uploadErr), errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
