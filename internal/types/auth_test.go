package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		request   CreateUserRequest
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid request",
			request: CreateUserRequest{Name: "John Doe", Email: "john@example.com", Password: "password123"},
		},
		{
			name:      "missing name",
			request:   CreateUserRequest{Email: "john@example.com", Password: "password123"},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "invalid email",
			request:   CreateUserRequest{Name: "John Doe", Email: "invalid-email", Password: "password123"},
			wantErr:   true,
			wantField: "email",
		},
		{
			name:      "password too short",
			request:   CreateUserRequest{Name: "John Doe", Email: "john@example.com", Password: "short"},
			wantErr:   true,
			wantField: "password",
		},
		{
			name:      "everything missing",
			request:   CreateUserRequest{},
			wantErr:   true,
			wantField: "name,email,password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AsValidationError(tt.request.Validate())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request LoginRequest
		wantErr bool
	}{
		{"valid request", LoginRequest{Email: "john@example.com", Password: "password123"}, false},
		{"missing email", LoginRequest{Password: "password123"}, true},
		{"invalid email", LoginRequest{Email: "nope", Password: "password123"}, true},
		{"missing password", LoginRequest{Email: "john@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdatePasswordRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request UpdatePasswordRequest
		wantErr bool
	}{
		{"valid request", UpdatePasswordRequest{CurrentPassword: "oldpass", NewPassword: "newpassword123"}, false},
		{"missing current password", UpdatePasswordRequest{NewPassword: "newpassword123"}, true},
		{"new password too short", UpdatePasswordRequest{CurrentPassword: "oldpass", NewPassword: "short"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginResponse_Serialization(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := LoginResponse{
		User: &User{
			ID:        uuid.New(),
			Name:      "John Doe",
			Email:     "john@example.com",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Token:     "jwt-token",
		TokenType: "bearer",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "jwt-token", decoded["token"])
	assert.Equal(t, "bearer", decoded["token_type"])
	user := decoded["user"].(map[string]any)
	assert.Equal(t, "john@example.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "password_hash")
}
