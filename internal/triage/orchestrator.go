// Package triage accepts or declines every pending friend request in one
// sequential, paced pass.
package triage

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/logging"
	"github.com/friendfilter/backend/internal/models"
	"github.com/friendfilter/backend/internal/policy"
	"github.com/friendfilter/backend/internal/roblox"
)

var (
	// ErrAuthFailed indicates the credential could not be resolved to an identity.
	ErrAuthFailed = goerr.New("authentication failed")
	// ErrListFailed indicates pending requests could not be listed.
	ErrListFailed = goerr.New("failed to fetch friend requests")
	// ErrCanceled indicates the batch stopped early; the partial summary is
	// returned alongside it.
	ErrCanceled = goerr.New("batch canceled")
)

const (
	unknownName = "Unknown"

	reasonProfileFailed = "Failed to fetch user info"
	reasonAcceptFailed  = "Failed to accept"
	reasonDeclineFailed = "Failed to decline"
)

// CredentialSource hands out the credential a batch runs with.
type CredentialSource interface {
	Snapshot() (credential.Credential, bool)
}

// Upstream is the subset of the upstream client the orchestrator drives.
type Upstream interface {
	FetchAntiForgeryToken(ctx context.Context, cred credential.Credential) (string, bool)
	AuthenticatedIdentity(ctx context.Context, cred credential.Credential) (models.Identity, error)
	ListPendingFriendRequests(ctx context.Context, cred credential.Credential, userID int64) (models.FriendRequestPage, error)
	UserProfile(ctx context.Context, cred credential.Credential, userID int64) (models.UserProfile, error)
	Respond(ctx context.Context, cred credential.Credential, requesterID int64, action roblox.Action, csrfToken string) error
}

// Orchestrator runs batch triage. Items are handled strictly one at a time in
// listing order.
type Orchestrator struct {
	Credentials CredentialSource
	Upstream    Upstream
	NewPacer    PacerFactory
	NowFunc     func() time.Time
}

// New returns an Orchestrator pacing items at the given interval.
func New(creds CredentialSource, upstream Upstream, pace time.Duration) *Orchestrator {
	return &Orchestrator{
		Credentials: creds,
		Upstream:    upstream,
		NewPacer:    RatePacerFactory(pace),
	}
}

// ProcessAll triages every pending request against minAgeDays.
//
// Per-item failures become outcomes with action "error" and never fail the
// batch. Cancellation of ctx is honored between items: the summary built so
// far is returned together with ErrCanceled.
func (o *Orchestrator) ProcessAll(ctx context.Context, minAgeDays int) (models.BatchSummary, error) {
	batchID := uuid.NewString()
	ctx, span := logging.StartSpan(ctx, "triage.process_all",
		slog.String("batch_id", batchID),
		slog.Int("min_age_days", minAgeDays))
	logger := logging.FromContext(ctx)

	cred, ok := o.snapshot()
	if !ok {
		span.End("result", "no_credential")
		return models.BatchSummary{}, credential.ErrNotConfigured
	}

	identity, err := o.Upstream.AuthenticatedIdentity(ctx, cred)
	if err != nil {
		span.End("result", "auth_failed")
		return models.BatchSummary{}, goerr.Wrap(errors.Join(ErrAuthFailed, err), "failed to resolve identity",
			goerr.V("credential", cred.Fingerprint()))
	}
	logger.Info("resolved identity", "user_id", identity.ID, "credential", cred.Fingerprint())

	page, err := o.Upstream.ListPendingFriendRequests(ctx, cred, identity.ID)
	if err != nil {
		span.End("result", "list_failed")
		return models.BatchSummary{}, goerr.Wrap(errors.Join(ErrListFailed, err), "failed to list pending requests",
			goerr.V("user_id", identity.ID))
	}
	if len(page.Requests) == 0 {
		span.End("result", "empty")
		summary := Summarize(nil)
		summary.BatchID = batchID
		return summary, nil
	}

	csrfToken, ok := o.Upstream.FetchAntiForgeryToken(ctx, cred)
	if !ok {
		logger.Warn("proceeding without anti-forgery token")
	}

	pacer := o.pacer()
	outcomes := make([]models.TriageOutcome, 0, len(page.Requests))
	var canceled error
	for i, req := range page.Requests {
		if err := ctx.Err(); err != nil {
			canceled = err
			break
		}

		// In-flight items finish even if ctx is canceled mid-item.
		itemCtx := context.WithoutCancel(ctx)
		outcome := o.processOne(itemCtx, cred, req, minAgeDays, csrfToken)
		outcomes = append(outcomes, outcome)
		logger.Debug("triaged request",
			"index", i,
			"requester_id", outcome.UserID,
			"action", string(outcome.Action),
			"reason", outcome.Reason)

		if err := pacer.Wait(ctx); err != nil {
			if i < len(page.Requests)-1 {
				canceled = err
			}
			break
		}
	}

	summary := Summarize(outcomes)
	summary.BatchID = batchID
	span.End(
		"processed", summary.Processed,
		"accepted", summary.Accepted,
		"declined", summary.Declined,
		"listed", len(page.Requests))

	if canceled != nil {
		return summary, goerr.Wrap(errors.Join(ErrCanceled, canceled), "batch stopped before completion",
			goerr.V("processed", summary.Processed),
			goerr.V("listed", len(page.Requests)))
	}
	return summary, nil
}

func (o *Orchestrator) processOne(ctx context.Context, cred credential.Credential, req models.FriendRequest, minAgeDays int, csrfToken string) models.TriageOutcome {
	name := req.Name
	if name == "" {
		name = unknownName
	}
	outcome := models.TriageOutcome{UserID: req.RequesterID, Username: name}

	profile, err := o.Upstream.UserProfile(ctx, cred, req.RequesterID)
	if err != nil {
		logging.FromContext(ctx).Warn("profile lookup failed", "requester_id", req.RequesterID, "error", err)
		outcome.Action = models.ActionError
		outcome.Reason = failureReason(reasonProfileFailed, err)
		return outcome
	}

	age := policy.AccountAgeDays(profile.Created, o.now())
	decision := policy.DecideAge(age, minAgeDays)

	action, failed := roblox.Accept, reasonAcceptFailed
	if decision == policy.Decline {
		action, failed = roblox.Decline, reasonDeclineFailed
	}

	if err := o.Upstream.Respond(ctx, cred, req.RequesterID, action, csrfToken); err != nil {
		logging.FromContext(ctx).Warn("respond failed", "requester_id", req.RequesterID, "action", string(action), "error", err)
		outcome.Action = models.ActionError
		outcome.AccountAge = &age
		outcome.Reason = failureReason(failed, err)
		return outcome
	}

	outcome.AccountAge = &age
	if decision == policy.Accept {
		outcome.Action = models.ActionAccepted
	} else {
		outcome.Action = models.ActionDeclined
		outcome.Reason = policy.DeclineReason(age, minAgeDays)
	}
	return outcome
}

func failureReason(prefix string, err error) string {
	if code, ok := roblox.StatusCode(err); ok {
		return prefix + ": upstream status " + strconv.Itoa(code)
	}
	if roblox.IsTransport(err) {
		return prefix + ": upstream unreachable"
	}
	return prefix
}

func (o *Orchestrator) snapshot() (credential.Credential, bool) {
	if o.Credentials == nil {
		return credential.Credential{}, false
	}
	return o.Credentials.Snapshot()
}

func (o *Orchestrator) pacer() Pacer {
	if o.NewPacer == nil {
		return NewRatePacer(MinPace)
	}
	return o.NewPacer()
}

func (o *Orchestrator) now() time.Time {
	if o.NowFunc != nil {
		return o.NowFunc()
	}
	return time.Now().UTC()
}
