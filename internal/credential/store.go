package credential

import (
	"encoding/hex"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/blake2b"
)

// SafetyPrefix is the warning banner every valid session cookie starts with.
const SafetyPrefix = "_|WARNING:-DO-NOT-SHARE-THIS."

// CookieName is the upstream session cookie carrying the credential.
const CookieName = ".ROBLOSECURITY"

// UserAgent is sent on every upstream call.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// TagInvalidFormat marks errors caused by a malformed credential.
var TagInvalidFormat = goerr.NewTag("invalid_format")

var (
	// ErrNotConfigured indicates no credential has been set yet.
	ErrNotConfigured = goerr.New("no credential configured")
	// ErrEmpty indicates no credential value was supplied.
	ErrEmpty = goerr.New("no credential provided", goerr.T(TagInvalidFormat))
	// ErrInvalidFormat indicates the value lacks the mandated safety prefix.
	ErrInvalidFormat = goerr.New("invalid credential format", goerr.T(TagInvalidFormat))
)

// Credential is an immutable session credential value.
type Credential struct {
	value string
}

// Parse trims and validates raw, returning a usable Credential.
func Parse(raw string) (Credential, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Credential{}, ErrEmpty
	}
	if !strings.HasPrefix(value, SafetyPrefix) {
		return Credential{}, ErrInvalidFormat
	}
	return Credential{value: value}, nil
}

// IsZero reports whether the credential is unset.
func (c Credential) IsZero() bool {
	return c.value == ""
}

// Headers returns the header set attached to every upstream call.
func (c Credential) Headers() http.Header {
	h := make(http.Header, 3)
	h.Set("Cookie", CookieName+"="+c.value)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", UserAgent)
	return h
}

// Fingerprint is a short digest safe to log in place of the value.
func (c Credential) Fingerprint() string {
	if c.IsZero() {
		return ""
	}
	sum := blake2b.Sum256([]byte(c.value))
	return hex.EncodeToString(sum[:6])
}

// String keeps the raw value out of logs and error messages.
func (c Credential) String() string {
	if c.IsZero() {
		return "<unset>"
	}
	return "credential:" + c.Fingerprint()
}

// Store holds the single process-wide credential. Replacement is atomic and
// last-write-wins; readers take a Snapshot and keep using it even if the
// store changes underneath them.
type Store struct {
	current atomic.Pointer[Credential]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set validates raw and replaces the stored credential.
func (s *Store) Set(raw string) (Credential, error) {
	cred, err := Parse(raw)
	if err != nil {
		return Credential{}, err
	}
	s.current.Store(&cred)
	return cred, nil
}

// Has reports whether a credential is configured.
func (s *Store) Has() bool {
	_, ok := s.Snapshot()
	return ok
}

// Snapshot returns the current credential, if any.
func (s *Store) Snapshot() (Credential, bool) {
	if s == nil {
		return Credential{}, false
	}
	cred := s.current.Load()
	if cred == nil || cred.IsZero() {
		return Credential{}, false
	}
	return *cred, true
}

// AuthHeaders returns the upstream header set, or false when unset.
func (s *Store) AuthHeaders() (http.Header, bool) {
	cred, ok := s.Snapshot()
	if !ok {
		return nil, false
	}
	return cred.Headers(), true
}
