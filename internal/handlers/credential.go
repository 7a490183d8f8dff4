package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/logging"
	"github.com/friendfilter/backend/internal/models"
)

const maxBodyBytes = 64 << 10

// CredentialHandler stores, verifies and imports the session credential.
type CredentialHandler struct {
	Credentials CredentialStore
	Upstream    FriendsAPI
	Importer    CredentialImporter
}

type setCredentialRequest struct {
	Credential string `json:"credential"`
	// Cookie is the field name older clients send.
	Cookie string `json:"cookie"`
}

func (r setCredentialRequest) value() string {
	if r.Credential != "" {
		return r.Credential
	}
	return r.Cookie
}

type credentialResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

type testCredentialResponse struct {
	Success bool            `json:"success"`
	User    models.Identity `json:"user"`
}

type importCredentialRequest struct {
	Browsers []string `json:"browsers"`
	Profile  string   `json:"profile"`
}

// Set handles POST /api/set-credential.
func (h CredentialHandler) Set(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req setCredentialRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Warn("invalid set-credential payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	raw := req.value()
	if raw == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "No credential provided"})
		return
	}

	cred, err := h.Credentials.Set(raw)
	if err != nil {
		respondError(ctx, w, err, "Invalid credential format")
		return
	}

	logger.Info("credential updated", "credential", cred.String())
	respondJSON(ctx, w, http.StatusOK, credentialResponse{
		Success:     true,
		Message:     "Credential saved successfully",
		Fingerprint: cred.Fingerprint(),
	})
}

// Test handles GET /api/test-credential.
func (h CredentialHandler) Test(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cred, ok := h.Credentials.Snapshot()
	if !ok {
		respondError(ctx, w, credential.ErrNotConfigured, "No credential configured")
		return
	}

	identity, err := h.Upstream.AuthenticatedIdentity(ctx, cred)
	if err != nil {
		respondError(ctx, w, err, "Invalid or expired credential")
		return
	}

	respondJSON(ctx, w, http.StatusOK, testCredentialResponse{Success: true, User: identity})
}

// Import handles POST /api/import-credential. An empty body searches every
// supported browser.
func (h CredentialHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Importer == nil {
		respondJSON(ctx, w, http.StatusNotImplemented, errorResponse{Error: "browser import unavailable"})
		return
	}

	var req importCredentialRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("invalid import-credential payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	cred, warnings, err := h.Importer.Import(ctx, credential.BrowserImportOptions{
		Browsers: req.Browsers,
		Profile:  req.Profile,
		Timeout:  10 * time.Second,
	})
	for _, warning := range warnings {
		logger.Debug("browser cookie warning", "warning", warning)
	}
	if err != nil {
		if errors.Is(err, credential.ErrNotFoundInBrowser) {
			respondJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "No session cookie found in local browsers"})
			return
		}
		respondError(ctx, w, err, "Failed to import credential")
		return
	}

	logger.Info("credential imported from browser", "credential", cred.String())
	respondJSON(ctx, w, http.StatusOK, credentialResponse{
		Success:     true,
		Message:     "Credential imported successfully",
		Fingerprint: cred.Fingerprint(),
		Warnings:    warnings,
	})
}
