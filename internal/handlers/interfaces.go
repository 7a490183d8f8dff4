package handlers

import (
	"context"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/models"
	"github.com/friendfilter/backend/internal/roblox"
)

// CredentialStore holds the process-wide session credential.
type CredentialStore interface {
	Set(raw string) (credential.Credential, error)
	Snapshot() (credential.Credential, bool)
}

// CredentialImporter loads the credential from a local browser.
type CredentialImporter interface {
	Import(ctx context.Context, opts credential.BrowserImportOptions) (credential.Credential, []string, error)
}

// FriendsAPI captures the upstream calls made by the single-item endpoints.
type FriendsAPI interface {
	FetchAntiForgeryToken(ctx context.Context, cred credential.Credential) (string, bool)
	AuthenticatedIdentity(ctx context.Context, cred credential.Credential) (models.Identity, error)
	ListPendingFriendRequests(ctx context.Context, cred credential.Credential, userID int64) (models.FriendRequestPage, error)
	UserProfile(ctx context.Context, cred credential.Credential, userID int64) (models.UserProfile, error)
	Respond(ctx context.Context, cred credential.Credential, requesterID int64, action roblox.Action, csrfToken string) error
}

// BatchTriage runs the bulk accept/decline pass.
type BatchTriage interface {
	ProcessAll(ctx context.Context, minAgeDays int) (models.BatchSummary, error)
}
