package roblox

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// TagTransport marks calls that never produced an HTTP response.
	TagTransport = goerr.NewTag("transport_failure")
	// TagStatus marks calls answered with a non-2xx status.
	TagStatus = goerr.NewTag("status_failure")
)

// ErrUnauthenticated indicates upstream rejected the credential.
var ErrUnauthenticated = goerr.New("invalid or expired credential")

// StatusError carries the status code of a failed upstream call.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded %d %s", e.Code, http.StatusText(e.Code))
}

// StatusCode extracts the upstream status code from err, if any.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}

// IsTransport reports whether err is a network-level failure. The tag is
// looked up on every goerr error in the chain, including joined errors, so
// rewrapping by callers does not hide it.
func IsTransport(err error) bool {
	return inChain(err, func(e error) bool {
		ge, ok := e.(*goerr.Error)
		return ok && goerr.HasTag(ge, TagTransport)
	})
}

func inChain(err error, match func(error) bool) bool {
	for err != nil {
		if match(err) {
			return true
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				if inChain(e, match) {
					return true
				}
			}
			return false
		}
		err = errors.Unwrap(err)
	}
	return false
}
