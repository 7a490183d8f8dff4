package credential

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/steipete/sweetcookie"
)

// CookieOrigin is the site the session cookie is scoped to.
const CookieOrigin = "https://www.roblox.com"

// ErrNotFoundInBrowser indicates no browser profile held a session cookie.
var ErrNotFoundInBrowser = goerr.New("session cookie not found in any browser")

// BrowserImportOptions narrows where Import looks.
type BrowserImportOptions struct {
	// Browsers is a priority list; empty means sweetcookie's default order.
	Browsers []string
	// Profile selects a specific profile for every listed browser.
	Profile string
	Timeout time.Duration
}

// CookieReader loads cookies from local browser stores.
type CookieReader func(ctx context.Context, opts sweetcookie.Options) (sweetcookie.Result, error)

// Importer pulls the session cookie out of a locally installed browser and
// stores it. Nothing is written back to disk.
type Importer struct {
	Store *Store
	Read  CookieReader
}

// NewImporter returns an Importer backed by sweetcookie.Get.
func NewImporter(store *Store) *Importer {
	return &Importer{Store: store, Read: sweetcookie.Get}
}

// Import finds the first session cookie that passes validation and stores it.
// Warnings from unreadable browser profiles are returned for the caller to log.
func (i *Importer) Import(ctx context.Context, opts BrowserImportOptions) (Credential, []string, error) {
	if i == nil || i.Store == nil {
		return Credential{}, nil, goerr.New("credential importer is not configured")
	}
	read := i.Read
	if read == nil {
		read = sweetcookie.Get
	}

	cookieOpts := sweetcookie.Options{
		URL:     CookieOrigin,
		Names:   []string{CookieName},
		Mode:    sweetcookie.ModeMerge,
		Timeout: opts.Timeout,
	}
	for _, b := range opts.Browsers {
		cookieOpts.Browsers = append(cookieOpts.Browsers, sweetcookie.Browser(b))
	}
	if opts.Profile != "" {
		browsers := cookieOpts.Browsers
		if len(browsers) == 0 {
			browsers = sweetcookie.DefaultBrowsers()
		}
		cookieOpts.Profiles = make(map[sweetcookie.Browser]string, len(browsers))
		for _, b := range browsers {
			cookieOpts.Profiles[b] = opts.Profile
		}
	}

	result, err := read(ctx, cookieOpts)
	if err != nil {
		return Credential{}, nil, goerr.Wrap(err, "failed to read browser cookies")
	}

	var lastErr error
	for _, cookie := range result.Cookies {
		if cookie.Name != CookieName {
			continue
		}
		cred, err := i.Store.Set(cookie.Value)
		if err != nil {
			lastErr = goerr.Wrap(err, "browser cookie rejected",
				goerr.V("browser", string(cookie.Source.Browser)),
				goerr.V("profile", cookie.Source.Profile))
			continue
		}
		return cred, result.Warnings, nil
	}

	if lastErr != nil {
		return Credential{}, result.Warnings, lastErr
	}
	return Credential{}, result.Warnings, ErrNotFoundInBrowser
}
