package domain

import "time"

// MembershipStatus is a point-in-time read from the membership collaborator.
// It must never be cached longer than one reconciliation pass.
type MembershipStatus struct {
	Active            bool       `json:"active"`
	RenewsOrExpiresAt *time.Time `json:"renews_or_expires_at,omitempty"`
}

// Guest is the status applied to anonymous sessions.
var Guest = MembershipStatus{Active: false}
