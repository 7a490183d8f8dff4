package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/logging"
	"github.com/friendfilter/backend/internal/roblox"
	"github.com/friendfilter/backend/internal/triage"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondRaw(ctx context.Context, w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.FromContext(ctx).Error("write passthrough body", "error", err)
	}
}

// respondError maps err onto a status code and writes message as the body.
// The upstream status is echoed when one is known; an unreachable upstream
// replaces message since the caller's request was never judged.
func respondError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	body := errorResponse{Error: message}
	if code, ok := roblox.StatusCode(err); ok {
		body.Status = code
	} else if roblox.IsTransport(err) {
		body.Error = upstreamUnreachable
	}

	logging.FromContext(ctx).Warn("request error", "error", err, "values", goerr.Values(err))
	respondJSON(ctx, w, status, body)
}

const upstreamUnreachable = "Upstream unreachable"

// statusFor derives the response code. A rejected credential is 401; an
// upstream answer is echoed when it is an error code; a network fault is 502
// whichever step it happened in.
func statusFor(err error) int {
	switch {
	case errors.Is(err, credential.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, credential.ErrInvalidFormat), errors.Is(err, credential.ErrEmpty),
		goerr.HasTag(err, credential.TagInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, roblox.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, triage.ErrCanceled):
		return http.StatusServiceUnavailable
	}

	if code, ok := roblox.StatusCode(err); ok {
		if code >= http.StatusBadRequest {
			return code
		}
		return http.StatusBadGateway
	}
	if roblox.IsTransport(err) {
		return http.StatusBadGateway
	}
	// An identity that resolved but could not be used still counts as an
	// authentication failure.
	if errors.Is(err, triage.ErrAuthFailed) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
