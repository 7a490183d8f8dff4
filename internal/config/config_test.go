package config

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/friendfilter/backend/internal/triage"
)

func TestServerValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Server
		wantErr bool
	}{
		{"valid", Server{Port: 5000, RateLimitWindow: time.Minute}, false},
		{"zeroPort", Server{Port: 0, RateLimitWindow: time.Minute}, true},
		{"hugePort", Server{Port: 70000, RateLimitWindow: time.Minute}, true},
		{"noWindow", Server{Port: 5000}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
		})
	}
	gt.Equal(t, Server{Port: 8080}.Addr(), ":8080")
}

func TestUpstreamValidate(t *testing.T) {
	gt.NoError(t, Upstream{Timeout: time.Second, Pace: triage.MinPace}.Validate())
	gt.Error(t, Upstream{Timeout: 0, Pace: triage.MinPace}.Validate())
	gt.Error(t, Upstream{Timeout: time.Second, Pace: 100 * time.Millisecond}.Validate())
	gt.Error(t, Upstream{Timeout: time.Second, Pace: triage.MinPace, ProfileCacheTTL: -time.Second}.Validate())

	cc := Upstream{UsersBaseURL: "http://users", Timeout: 3 * time.Second}.ClientConfig()
	gt.Equal(t, cc.UsersBaseURL, "http://users")
	gt.Equal(t, cc.Timeout, 3*time.Second)
}

func TestCredentialValidate(t *testing.T) {
	gt.NoError(t, Credential{Value: "x"}.Validate())
	gt.NoError(t, Credential{FromBrowser: true}.Validate())
	gt.Error(t, Credential{}.Validate())
	gt.Error(t, Credential{Value: " "}.Validate())
	gt.Error(t, Credential{Value: "x", FromBrowser: true}.Validate())
}

func TestLoggerConfigure(t *testing.T) {
	l := Logger{Level: "debug", Format: "json"}
	logger, err := l.Configure()
	gt.NoError(t, err)
	gt.V(t, logger).NotNil()

	l.Format = "yaml"
	_, err = l.Configure()
	gt.Error(t, err)
}
