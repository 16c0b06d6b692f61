package domain

import "time"

// PersonalAccessToken authenticates a back-office operator. TenantID scopes
// every operation the token performs to one tenant organization.
type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	TenantID  int64
	Abilities string
	ExpiresAt *time.Time
}
