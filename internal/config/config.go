package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/friendfilter/backend/internal/policy"
	"github.com/friendfilter/backend/internal/roblox"
	"github.com/friendfilter/backend/internal/triage"
)

// Server holds configuration for the HTTP boundary.
type Server struct {
	Port              int
	AllowedOrigins    []string
	DefaultMinAgeDays int
	RateLimitRequests int
	// TriageRateLimitRequests overrides RateLimitRequests for the accept,
	// decline and batch routes; zero keeps the shared budget.
	TriageRateLimitRequests int
	RateLimitWindow         time.Duration
}

// Flags returns CLI flags for Server configuration.
func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "port",
			Usage:       "HTTP listen port",
			Category:    "Server",
			Value:       5000,
			Sources:     cli.EnvVars("FRIENDFILTER_PORT", "PORT"),
			Destination: &s.Port,
		},
		&cli.StringSliceFlag{
			Name:        "allowed-origin",
			Usage:       "Origin allowed by CORS (repeatable, * for any)",
			Category:    "Server",
			Value:       []string{"*"},
			Sources:     cli.EnvVars("FRIENDFILTER_ALLOWED_ORIGINS"),
			Destination: &s.AllowedOrigins,
		},
		&cli.IntFlag{
			Name:        "default-min-age-days",
			Usage:       "Account age threshold used when a batch request omits minAgeDays",
			Category:    "Server",
			Value:       policy.DefaultMinAgeDays,
			Sources:     cli.EnvVars("FRIENDFILTER_DEFAULT_MIN_AGE_DAYS"),
			Destination: &s.DefaultMinAgeDays,
		},
		&cli.IntFlag{
			Name:        "rate-limit-requests",
			Usage:       "Mutating requests allowed per client per window",
			Category:    "Server",
			Value:       30,
			Sources:     cli.EnvVars("FRIENDFILTER_RATE_LIMIT_REQUESTS"),
			Destination: &s.RateLimitRequests,
		},
		&cli.IntFlag{
			Name:        "triage-rate-limit-requests",
			Usage:       "Accept, decline and batch requests allowed per client per window (0 uses --rate-limit-requests)",
			Category:    "Server",
			Value:       10,
			Sources:     cli.EnvVars("FRIENDFILTER_TRIAGE_RATE_LIMIT_REQUESTS"),
			Destination: &s.TriageRateLimitRequests,
		},
		&cli.DurationFlag{
			Name:        "rate-limit-window",
			Usage:       "Window for --rate-limit-requests",
			Category:    "Server",
			Value:       time.Minute,
			Sources:     cli.EnvVars("FRIENDFILTER_RATE_LIMIT_WINDOW"),
			Destination: &s.RateLimitWindow,
		},
	}
}

// Addr is the listen address derived from Port.
func (s Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Validate checks the server configuration.
func (s Server) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return goerr.New("invalid port", goerr.V("port", s.Port))
	}
	if s.RateLimitWindow <= 0 {
		return goerr.New("rate limit window must be positive", goerr.V("window", s.RateLimitWindow))
	}
	return nil
}

// LogValue returns structured log value.
func (s Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", s.Port),
		slog.String("allowed_origins", strings.Join(s.AllowedOrigins, ",")),
		slog.Int("default_min_age_days", s.DefaultMinAgeDays),
		slog.Int("rate_limit_requests", s.RateLimitRequests),
		slog.Int("triage_rate_limit_requests", s.TriageRateLimitRequests),
		slog.Duration("rate_limit_window", s.RateLimitWindow),
	)
}

// Upstream holds configuration for calls to the social-graph API.
type Upstream struct {
	AuthBaseURL    string
	UsersBaseURL   string
	FriendsBaseURL string
	Timeout        time.Duration
	Pace           time.Duration
	// ProfileCacheTTL bounds profile reuse across batch runs; zero disables
	// the cache.
	ProfileCacheTTL time.Duration
}

// Flags returns CLI flags for Upstream configuration.
func (u *Upstream) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-base-url",
			Category:    "Upstream",
			Value:       roblox.DefaultAuthBaseURL,
			Sources:     cli.EnvVars("FRIENDFILTER_AUTH_BASE_URL"),
			Destination: &u.AuthBaseURL,
		},
		&cli.StringFlag{
			Name:        "users-base-url",
			Category:    "Upstream",
			Value:       roblox.DefaultUsersBaseURL,
			Sources:     cli.EnvVars("FRIENDFILTER_USERS_BASE_URL"),
			Destination: &u.UsersBaseURL,
		},
		&cli.StringFlag{
			Name:        "friends-base-url",
			Category:    "Upstream",
			Value:       roblox.DefaultFriendsBaseURL,
			Sources:     cli.EnvVars("FRIENDFILTER_FRIENDS_BASE_URL"),
			Destination: &u.FriendsBaseURL,
		},
		&cli.DurationFlag{
			Name:        "upstream-timeout",
			Usage:       "Timeout applied to every upstream call",
			Category:    "Upstream",
			Value:       roblox.DefaultTimeout,
			Sources:     cli.EnvVars("FRIENDFILTER_UPSTREAM_TIMEOUT"),
			Destination: &u.Timeout,
		},
		&cli.DurationFlag{
			Name:        "pace",
			Usage:       "Minimum gap between triaged requests (at least 500ms)",
			Category:    "Upstream",
			Value:       triage.MinPace,
			Sources:     cli.EnvVars("FRIENDFILTER_PACE"),
			Destination: &u.Pace,
		},
		&cli.DurationFlag{
			Name:        "profile-cache-ttl",
			Usage:       "How long batch runs reuse a fetched profile (0 disables)",
			Category:    "Upstream",
			Value:       roblox.DefaultProfileCacheTTL,
			Sources:     cli.EnvVars("FRIENDFILTER_PROFILE_CACHE_TTL"),
			Destination: &u.ProfileCacheTTL,
		},
	}
}

// Validate checks the upstream configuration.
func (u Upstream) Validate() error {
	if u.Timeout <= 0 {
		return goerr.New("upstream timeout must be positive", goerr.V("timeout", u.Timeout))
	}
	if u.ProfileCacheTTL < 0 {
		return goerr.New("profile cache ttl must not be negative", goerr.V("ttl", u.ProfileCacheTTL))
	}
	if u.Pace < triage.MinPace {
		return goerr.New("pace is below the minimum", goerr.V("pace", u.Pace), goerr.V("min", triage.MinPace))
	}
	return nil
}

// ClientConfig converts to the upstream client configuration.
func (u Upstream) ClientConfig() roblox.Config {
	return roblox.Config{
		AuthBaseURL:    u.AuthBaseURL,
		UsersBaseURL:   u.UsersBaseURL,
		FriendsBaseURL: u.FriendsBaseURL,
		Timeout:        u.Timeout,
	}
}

// LogValue returns structured log value.
func (u Upstream) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("auth_base_url", u.AuthBaseURL),
		slog.String("users_base_url", u.UsersBaseURL),
		slog.String("friends_base_url", u.FriendsBaseURL),
		slog.Duration("timeout", u.Timeout),
		slog.Duration("pace", u.Pace),
		slog.Duration("profile_cache_ttl", u.ProfileCacheTTL),
	)
}

// Credential carries a credential supplied on the command line or via env.
type Credential struct {
	Value       string
	FromBrowser bool
	Browsers    []string
	Profile     string
}

// Flags returns CLI flags for Credential configuration.
func (c *Credential) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "credential",
			Usage:       "Session cookie value",
			Category:    "Credential",
			Sources:     cli.EnvVars("FRIENDFILTER_CREDENTIAL"),
			Destination: &c.Value,
		},
		&cli.BoolFlag{
			Name:        "from-browser",
			Usage:       "Read the session cookie from a local browser profile",
			Category:    "Credential",
			Destination: &c.FromBrowser,
		},
		&cli.StringSliceFlag{
			Name:        "browser",
			Usage:       "Browser to read from when --from-browser is set (repeatable)",
			Category:    "Credential",
			Destination: &c.Browsers,
		},
		&cli.StringFlag{
			Name:        "browser-profile",
			Usage:       "Browser profile name or cookie store path",
			Category:    "Credential",
			Destination: &c.Profile,
		},
	}
}

// Validate checks that exactly one credential source was chosen.
func (c Credential) Validate() error {
	hasValue := strings.TrimSpace(c.Value) != ""
	switch {
	case hasValue && c.FromBrowser:
		return goerr.New("--credential and --from-browser are mutually exclusive")
	case !hasValue && !c.FromBrowser:
		return goerr.New("a credential is required: use --credential, FRIENDFILTER_CREDENTIAL, or --from-browser")
	}
	return nil
}
