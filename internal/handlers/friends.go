package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/logging"
	"github.com/friendfilter/backend/internal/models"
	"github.com/friendfilter/backend/internal/roblox"
	"github.com/friendfilter/backend/internal/triage"
)

// FriendHandler exposes pending-request listing, single-item actions and the
// batch triage endpoint.
type FriendHandler struct {
	Credentials CredentialStore
	Upstream    FriendsAPI
	Triage      BatchTriage
	// DefaultMinAgeDays applies when a batch request omits minAgeDays. It is
	// used as given; zero accepts every requester.
	DefaultMinAgeDays int
}

type processAllRequest struct {
	MinAgeDays *int `json:"minAgeDays"`
}

type processAllResponse struct {
	Success bool `json:"success"`
	models.BatchSummary
}

// ListPending handles GET /api/list-pending-requests and passes the upstream
// listing body through untouched.
func (h FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cred, ok := h.Credentials.Snapshot()
	if !ok {
		respondError(ctx, w, credential.ErrNotConfigured, "No credential configured")
		return
	}

	identity, err := h.Upstream.AuthenticatedIdentity(ctx, cred)
	if err != nil {
		respondError(ctx, w, err, "Authentication failed")
		return
	}

	page, err := h.Upstream.ListPendingFriendRequests(ctx, cred, identity.ID)
	if err != nil {
		respondError(ctx, w, err, "Failed to fetch friend requests")
		return
	}

	respondRaw(ctx, w, page.Raw)
}

// UserInfo handles GET /api/get-user-info/{id}.
func (h FriendHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cred, ok := h.Credentials.Snapshot()
	if !ok {
		respondError(ctx, w, credential.ErrNotConfigured, "No credential configured")
		return
	}

	userID, ok := parseUserID(r)
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	profile, err := h.Upstream.UserProfile(ctx, cred, userID)
	if err != nil {
		respondError(ctx, w, err, "Failed to fetch user info")
		return
	}

	respondRaw(ctx, w, profile.Raw)
}

// Accept handles POST /api/accept-request/{id}.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, roblox.Accept)
}

// Decline handles POST /api/decline-request/{id}.
func (h FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, roblox.Decline)
}

func (h FriendHandler) respond(w http.ResponseWriter, r *http.Request, action roblox.Action) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	cred, ok := h.Credentials.Snapshot()
	if !ok {
		respondError(ctx, w, credential.ErrNotConfigured, "No credential configured")
		return
	}

	requesterID, ok := parseUserID(r)
	if !ok {
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	token, ok := h.Upstream.FetchAntiForgeryToken(ctx, cred)
	if !ok {
		logger.Warn("proceeding without anti-forgery token", "requester_id", requesterID)
	}

	if err := h.Upstream.Respond(ctx, cred, requesterID, action, token); err != nil {
		message := "Failed to accept request"
		if action == roblox.Decline {
			message = "Failed to decline request"
		}
		respondError(ctx, w, err, message)
		return
	}

	message := "Friend request accepted"
	if action == roblox.Decline {
		message = "Friend request declined"
	}
	logger.Info("friend request answered", "requester_id", requesterID, "action", string(action))
	respondJSON(ctx, w, http.StatusOK, messageResponse{Success: true, Message: message})
}

// ProcessAll handles POST /api/process-all-requests. An empty body runs with
// the configured default threshold.
func (h FriendHandler) ProcessAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req processAllRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("invalid process-all payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	minAgeDays := h.DefaultMinAgeDays
	if req.MinAgeDays != nil {
		minAgeDays = *req.MinAgeDays
	}

	summary, err := h.Triage.ProcessAll(ctx, minAgeDays)
	switch {
	case errors.Is(err, triage.ErrCanceled):
		respondJSON(ctx, w, http.StatusServiceUnavailable, processAllResponse{BatchSummary: summary})
		return
	case errors.Is(err, credential.ErrNotConfigured):
		respondError(ctx, w, err, "No credential configured")
		return
	case errors.Is(err, triage.ErrAuthFailed):
		respondError(ctx, w, err, "Authentication failed")
		return
	case err != nil:
		respondError(ctx, w, err, "Failed to fetch friend requests")
		return
	}

	respondJSON(ctx, w, http.StatusOK, processAllResponse{Success: true, BatchSummary: summary})
}

func parseUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
