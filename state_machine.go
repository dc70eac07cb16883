package storefront

import (
	"time"
)

// Verify moves a pending account to verified. Checks run in order: code
// match, then expiry; the first failing check decides the error. A verified
// account has no live code, so verifying it again reports ErrInvalidOTP.
func (a *Account) Verify(code string, now time.Time) error {
	pending, ok := a.State.(PendingState)
	if !ok || !pending.Matches(code) {
		return ErrInvalidOTP
	}

	if pending.Expired(now) {
		return ErrOTPExpired
	}

	a.State = VerifiedState{VerifiedAt: now}
	a.UpdatedAt = now
	return nil
}

// NewPendingState creates the state for a freshly registered account.
func NewPendingState(code string, now time.Time, ttl time.Duration) PendingState {
	return PendingState{
		Code:      code,
		ExpiresAt: now.Add(ttl),
	}
}
