package models

import (
	"encoding/json"
	"time"
)

// Identity is the account the configured credential authenticates as.
type Identity struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// FriendRequest is a pending incoming request as returned by the listing call.
type FriendRequest struct {
	RequesterID int64
	Name        string
	DisplayName string
	SentAt      time.Time
}

// FriendRequestPage is the first page of pending requests, most recent first.
// Raw holds the upstream body untouched for passthrough responses.
type FriendRequestPage struct {
	Requests []FriendRequest
	Raw      json.RawMessage
}

// UserProfile is the public profile of a requester.
type UserProfile struct {
	ID          int64
	Name        string
	DisplayName string
	Created     time.Time
	IsBanned    bool
	Raw         json.RawMessage
}

// Action is the outcome of triaging a single request.
type Action string

const (
	ActionAccepted Action = "accepted"
	ActionDeclined Action = "declined"
	ActionError    Action = "error"
)

// TriageOutcome records what happened to one pending request.
type TriageOutcome struct {
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	Action     Action `json:"action"`
	AccountAge *int   `json:"accountAge,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// BatchSummary is the report returned by a batch triage run.
type BatchSummary struct {
	BatchID   string          `json:"batchId,omitempty"`
	Processed int             `json:"processed"`
	Accepted  int             `json:"accepted"`
	Declined  int             `json:"declined"`
	Results   []TriageOutcome `json:"results"`
}
