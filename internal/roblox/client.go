// Package roblox talks to the upstream social-graph API on behalf of the
// configured session credential.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/models"
)

const (
	DefaultAuthBaseURL    = "https://auth.roblox.com"
	DefaultUsersBaseURL   = "https://users.roblox.com"
	DefaultFriendsBaseURL = "https://friends.roblox.com"
	DefaultTimeout        = 10 * time.Second

	// PageLimit is the number of pending requests read; later pages are ignored.
	PageLimit = 100

	csrfHeader = "x-csrf-token"
	// maxBodyBytes bounds how much of an upstream response is buffered.
	maxBodyBytes = 4 << 20
)

// Action is a response to a pending friend request.
type Action string

const (
	Accept  Action = "accept"
	Decline Action = "decline"
)

// Config controls where and how the client reaches upstream.
type Config struct {
	AuthBaseURL    string
	UsersBaseURL   string
	FriendsBaseURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client issues authenticated calls to the upstream API. It never retries.
type Client struct {
	authBase    string
	usersBase   string
	friendsBase string
	timeout     time.Duration
	http        *http.Client
}

// NewClient applies defaults to cfg and returns a Client.
func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.AuthBaseURL) == "" {
		cfg.AuthBaseURL = DefaultAuthBaseURL
	}
	if strings.TrimSpace(cfg.UsersBaseURL) == "" {
		cfg.UsersBaseURL = DefaultUsersBaseURL
	}
	if strings.TrimSpace(cfg.FriendsBaseURL) == "" {
		cfg.FriendsBaseURL = DefaultFriendsBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		authBase:    strings.TrimSuffix(cfg.AuthBaseURL, "/"),
		usersBase:   strings.TrimSuffix(cfg.UsersBaseURL, "/"),
		friendsBase: strings.TrimSuffix(cfg.FriendsBaseURL, "/"),
		timeout:     cfg.Timeout,
		http:        cfg.HTTPClient,
	}
}

// FetchAntiForgeryToken harvests the rotating CSRF token from a logout-style
// POST that upstream is expected to reject. Any failure yields ("", false).
func (c *Client) FetchAntiForgeryToken(ctx context.Context, cred credential.Credential) (string, bool) {
	if cred.IsZero() {
		return "", false
	}
	resp, err := c.do(ctx, cred, http.MethodPost, c.authBase+"/v2/logout", "")
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(resp.header.Get(csrfHeader))
	return token, token != ""
}

// AuthenticatedIdentity resolves the account behind cred.
func (c *Client) AuthenticatedIdentity(ctx context.Context, cred credential.Credential) (models.Identity, error) {
	if cred.IsZero() {
		return models.Identity{}, credential.ErrNotConfigured
	}
	resp, err := c.do(ctx, cred, http.MethodGet, c.usersBase+"/v1/users/authenticated", "")
	if err != nil {
		return models.Identity{}, err
	}
	if resp.status != http.StatusOK {
		return models.Identity{}, goerr.Wrap(ErrUnauthenticated, "identity lookup rejected",
			goerr.V("status", resp.status))
	}

	var identity models.Identity
	if err := json.Unmarshal(resp.body, &identity); err != nil {
		return models.Identity{}, goerr.Wrap(err, "failed to decode identity")
	}
	return identity, nil
}

type friendRequestListing struct {
	Data []struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		DisplayName   string `json:"displayName"`
		FriendRequest struct {
			SentAt string `json:"sentAt"`
		} `json:"friendRequest"`
	} `json:"data"`
}

// ListPendingFriendRequests returns the first page of pending requests for
// userID, most recent first.
func (c *Client) ListPendingFriendRequests(ctx context.Context, cred credential.Credential, userID int64) (models.FriendRequestPage, error) {
	if cred.IsZero() {
		return models.FriendRequestPage{}, credential.ErrNotConfigured
	}
	url := fmt.Sprintf("%s/v1/users/%d/friends/requests?sortOrder=Desc&limit=%d", c.friendsBase, userID, PageLimit)
	resp, err := c.do(ctx, cred, http.MethodGet, url, "")
	if err != nil {
		return models.FriendRequestPage{}, err
	}
	if err := resp.requireSuccess("list friend requests"); err != nil {
		return models.FriendRequestPage{}, err
	}

	var listing friendRequestListing
	if err := json.Unmarshal(resp.body, &listing); err != nil {
		return models.FriendRequestPage{}, goerr.Wrap(err, "failed to decode friend request listing")
	}

	page := models.FriendRequestPage{
		Requests: make([]models.FriendRequest, 0, len(listing.Data)),
		Raw:      json.RawMessage(resp.body),
	}
	for _, item := range listing.Data {
		page.Requests = append(page.Requests, models.FriendRequest{
			RequesterID: item.ID,
			Name:        item.Name,
			DisplayName: item.DisplayName,
			SentAt:      parseSentAt(item.FriendRequest.SentAt),
		})
	}
	return page, nil
}

// parseSentAt reads a request timestamp. Nothing downstream depends on it, so
// an unparseable value is left zero instead of failing the listing.
func parseSentAt(raw string) time.Time {
	sentAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return sentAt
}

type profilePayload struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Created     time.Time `json:"created"`
	IsBanned    bool      `json:"isBanned"`
}

// UserProfile fetches the public profile of userID.
func (c *Client) UserProfile(ctx context.Context, cred credential.Credential, userID int64) (models.UserProfile, error) {
	if cred.IsZero() {
		return models.UserProfile{}, credential.ErrNotConfigured
	}
	resp, err := c.do(ctx, cred, http.MethodGet, fmt.Sprintf("%s/v1/users/%d", c.usersBase, userID), "")
	if err != nil {
		return models.UserProfile{}, err
	}
	if err := resp.requireSuccess("fetch user profile"); err != nil {
		return models.UserProfile{}, err
	}

	var payload profilePayload
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return models.UserProfile{}, goerr.Wrap(err, "failed to decode user profile", goerr.V("user_id", userID))
	}
	if payload.Created.IsZero() {
		return models.UserProfile{}, goerr.New("user profile has no creation time", goerr.V("user_id", userID))
	}

	return models.UserProfile{
		ID:          payload.ID,
		Name:        payload.Name,
		DisplayName: payload.DisplayName,
		Created:     payload.Created,
		IsBanned:    payload.IsBanned,
		Raw:         json.RawMessage(resp.body),
	}, nil
}

// Respond accepts or declines the pending request from requesterID. The
// anti-forgery token is attached only when non-empty.
func (c *Client) Respond(ctx context.Context, cred credential.Credential, requesterID int64, action Action, csrfToken string) error {
	if cred.IsZero() {
		return credential.ErrNotConfigured
	}
	var path string
	switch action {
	case Accept:
		path = "accept-friend-request"
	case Decline:
		path = "decline-friend-request"
	default:
		return goerr.New("unknown friend request action", goerr.V("action", string(action)))
	}

	url := fmt.Sprintf("%s/v1/users/%d/%s", c.friendsBase, requesterID, path)
	resp, err := c.do(ctx, cred, http.MethodPost, url, csrfToken)
	if err != nil {
		return err
	}
	return resp.requireSuccess(string(action) + " friend request")
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) requireSuccess(op string) error {
	if r.status >= 200 && r.status < 300 {
		return nil
	}
	return goerr.Wrap(&StatusError{Code: r.status}, "failed to "+op,
		goerr.T(TagStatus),
		goerr.V("status", r.status))
}

func (c *Client) do(ctx context.Context, cred credential.Credential, method, url, csrfToken string) (response, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(callCtx, method, url, body)
	if err != nil {
		return response{}, goerr.Wrap(err, "failed to build upstream request", goerr.V("url", url))
	}
	req.Header = cred.Headers()
	if csrfToken != "" {
		req.Header.Set(csrfHeader, csrfToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, goerr.Wrap(err, "upstream request failed",
			goerr.T(TagTransport),
			goerr.V("method", method),
			goerr.V("url", url))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, goerr.Wrap(err, "failed to read upstream response",
			goerr.T(TagTransport),
			goerr.V("url", url))
	}

	return response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
