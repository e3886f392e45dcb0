package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases are deliberately indistinguishable so the
	// API cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists signals a registration against an email that is
	// already taken.
	ErrUserExists = errors.New("account already exists")

	// ErrUserNotFound is an internal repository result; the session
	// service never surfaces it to callers directly.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken covers malformed tokens, bad signatures, type
	// mismatches, and tokens whose subject no longer exists.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionExpired is distinct from ErrInvalidToken: the client
	// should re-authenticate rather than retry.
	ErrSessionExpired = errors.New("session expired")

	// ErrPasswordUnchanged rejects a password change where the new
	// password equals the current one.
	ErrPasswordUnchanged = errors.New("new password must differ from current password")

	// ErrRateLimited signals a throttled request. Use errors.As with
	// *RateLimitError to recover the retry-after hint.
	ErrRateLimited = errors.New("too many attempts")

	// ErrPolicyViolation signals a password that fails the strength
	// policy. Use errors.As with *PolicyError to recover the rule list.
	ErrPolicyViolation = errors.New("password does not meet the strength policy")

	// ErrServiceUnavailable is returned when the record store or the
	// hasher exceeds its call timeout. Retryable.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// RateLimitError wraps ErrRateLimited with a retry-after hint so the API
// layer can tell the client when the window reopens.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// PolicyError wraps ErrPolicyViolation with the ordered list of violated
// rules.
type PolicyError struct {
	Violations []PasswordRule
}

func (e *PolicyError) Error() string {
	rules := make([]string, len(e.Violations))
	for i, r := range e.Violations {
		rules[i] = string(r)
	}
	return "password policy violated: " + strings.Join(rules, ", ")
}

func (e *PolicyError) Unwrap() error { return ErrPolicyViolation }
