package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness and whether a credential is configured.
type HealthHandler struct {
	Credentials CredentialStore
	NowFunc     func() time.Time
}

type healthResponse struct {
	Status                string `json:"status"`
	Timestamp             string `json:"timestamp"`
	CredentialConfigured  bool   `json:"credentialConfigured"`
	CookieConfigured      bool   `json:"cookieConfigured"`
	CredentialFingerprint string `json:"credentialFingerprint,omitempty"`
}

// Handle implements GET /api/health.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	}
	if h.Credentials != nil {
		if cred, ok := h.Credentials.Snapshot(); ok {
			resp.CredentialConfigured = true
			resp.CookieConfigured = true
			resp.CredentialFingerprint = cred.Fingerprint()
		}
	}

	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (h HealthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}
