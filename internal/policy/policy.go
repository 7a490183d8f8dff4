// Package policy decides whether a friend request should be accepted based on
// the age of the requester's account.
package policy

import (
	"fmt"
	"math"
	"time"
)

// DefaultMinAgeDays is the threshold used when a caller does not supply one.
const DefaultMinAgeDays = 60

// Decision is the verdict for one requester.
type Decision int

const (
	Decline Decision = iota
	Accept
)

func (d Decision) String() string {
	if d == Accept {
		return "accept"
	}
	return "decline"
}

// AccountAgeDays returns the whole days elapsed between createdAt and now,
// rounded toward negative infinity.
func AccountAgeDays(createdAt, now time.Time) int {
	return int(math.Floor(now.Sub(createdAt).Hours() / 24))
}

// DecideAge accepts iff ageDays >= minAgeDays. Thresholds are not validated.
func DecideAge(ageDays, minAgeDays int) Decision {
	if ageDays >= minAgeDays {
		return Accept
	}
	return Decline
}

// Decide applies DecideAge to the account created at createdAt.
func Decide(createdAt, now time.Time, minAgeDays int) Decision {
	return DecideAge(AccountAgeDays(createdAt, now), minAgeDays)
}

// DeclineReason is the human-readable explanation attached to declines.
func DeclineReason(ageDays, minAgeDays int) string {
	return fmt.Sprintf("Account too young (%d days < %d days)", ageDays, minAgeDays)
}
