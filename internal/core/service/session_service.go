package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
	"github.com/subtrackr/subscription-tracker/internal/core/password"
	"github.com/subtrackr/subscription-tracker/internal/core/ports"
	"github.com/subtrackr/subscription-tracker/internal/core/ratelimit"
	"github.com/subtrackr/subscription-tracker/internal/core/token"
)

const defaultOpTimeout = 5 * time.Second

// sessionService orchestrates registration, login, refresh, logout, and
// password changes. It is stateless per request: all shared mutable state
// lives in the user repository and the rate-limit counter store.
type sessionService struct {
	repo      ports.UserRepository
	codec     *token.Codec
	limiter   *ratelimit.Limiter
	log       zerolog.Logger
	opTimeout time.Duration
}

// NewSessionService returns a SessionService implementation. opTimeout
// bounds every repository and hashing call; non-positive values select the
// 5s default.
func NewSessionService(
	repo ports.UserRepository,
	codec *token.Codec,
	limiter *ratelimit.Limiter,
	log zerolog.Logger,
	opTimeout time.Duration,
) ports.SessionService {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &sessionService{
		repo:      repo,
		codec:     codec,
		limiter:   limiter,
		log:       log,
		opTimeout: opTimeout,
	}
}

// Register creates an account and issues a first token pair.
func (s *sessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.Session, error) {
	email := domain.NormalizeEmail(in.Email)

	// 1. Throttle registrations per originating address.
	if err := s.checkLimit(ctx, ratelimit.ActionRegister, in.ClientAddr); err != nil {
		return nil, err
	}
	s.recordAttempt(ctx, ratelimit.ActionRegister, in.ClientAddr)

	// 2. Enforce the password policy before any persistence work.
	if rules := password.Validate(in.Password); len(rules) > 0 {
		return nil, &domain.PolicyError{Violations: rules}
	}

	// 3. Uniqueness check. The unique index on email catches the
	// remaining create/create race.
	if _, err := s.findByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hashPassword(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Msg("account registered")
	return s.issueSession(created)
}

// Login verifies credentials and issues a fresh token pair. The limiter
// runs before the repository or the hasher so a blocked caller costs
// nothing and learns nothing about account existence. An unknown email and
// a wrong password produce the same ErrInvalidCredentials.
func (s *sessionService) Login(ctx context.Context, email, pass, clientAddr string) (*ports.Session, error) {
	email = domain.NormalizeEmail(email)

	key := email
	if key == "" {
		key = clientAddr
	}

	// 1. Cheap rejection when the key is already blocked.
	if err := s.checkLimit(ctx, ratelimit.ActionLogin, key); err != nil {
		return nil, err
	}

	// 2. Lookup. A missing account counts as a failed attempt too,
	// otherwise probing unknown emails would never throttle.
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.recordAttempt(ctx, ratelimit.ActionLogin, key)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 3. Verify the password.
	ok, err := s.verifyPassword(ctx, pass, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordAttempt(ctx, ratelimit.ActionLogin, key)
		return nil, domain.ErrInvalidCredentials
	}

	s.log.Info().Str("user_id", user.ID).Msg("login succeeded")
	return s.issueSession(user)
}

// Refresh exchanges a valid refresh token for a brand-new access/refresh
// pair. The presented token is not invalidated: rotation is stateless, so
// an old-but-unexpired refresh token stays nominally valid until its own
// expiry. Two concurrent calls with the same token both succeed and issue
// distinct pairs.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*ports.Session, error) {
	// 1. Verify signature, expiry, and type tag.
	subject, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrInvalidToken
	}

	// 2. Refresh shares the login throttle family, keyed by subject.
	if err := s.checkLimit(ctx, ratelimit.ActionRefresh, subject); err != nil {
		return nil, err
	}

	// 3. Re-confirm the subject still exists; the account may have been
	// deleted since issuance.
	user, err := s.findByID(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.recordAttempt(ctx, ratelimit.ActionRefresh, subject)
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	return s.issueSession(user)
}

// CurrentUser resolves the subject of a verified access token.
func (s *sessionService) CurrentUser(ctx context.Context, subjectID string) (*domain.User, error) {
	user, err := s.findByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

// ChangePassword re-verifies the current password, enforces the policy on
// the new one, and persists a fresh hash. No tokens are returned: existing
// tokens stay valid until natural expiry.
func (s *sessionService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	// Proof of credential knowledge, not just session possession.
	ok, err := s.verifyPassword(ctx, currentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		return domain.ErrPasswordUnchanged
	}
	if rules := password.Validate(newPassword); len(rules) > 0 {
		return &domain.PolicyError{Violations: rules}
	}

	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := s.updatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

// Logout is advisory: tokens are stateless, so the server has nothing to
// invalidate. The contract is that the client discards its stored pair.
// Safe to call any number of times.
func (s *sessionService) Logout(_ context.Context, subjectID string) error {
	s.log.Debug().Str("user_id", subjectID).Msg("logout acknowledged")
	return nil
}

// issueSession signs a fresh access/refresh pair for the user.
func (s *sessionService) issueSession(user *domain.User) (*ports.Session, error) {
	access, err := s.codec.Issue(user.ID, token.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(user.ID, token.KindRefresh)
	if err != nil {
		return nil, err
	}
	return &ports.Session{
		User:         user.Sanitized(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// checkLimit fails open when the counter store is unreachable: locking
// every user out because Redis is down is worse than a brief throttle gap.
func (s *sessionService) checkLimit(ctx context.Context, action ratelimit.Action, key string) error {
	err := s.limiter.Check(ctx, action, key)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return err
	}
	s.log.Warn().Err(err).Str("action", string(action)).Msg("rate limit check failed, allowing request")
	return nil
}

func (s *sessionService) recordAttempt(ctx context.Context, action ratelimit.Action, key string) {
	if err := s.limiter.Record(ctx, action, key); err != nil {
		s.log.Warn().Err(err).Str("action", string(action)).Msg("failed to record rate limit attempt")
	}
}

// hashPassword bounds the CPU-heavy bcrypt call so a saturated host
// surfaces as a retryable ErrServiceUnavailable instead of a hang.
func (s *sessionService) hashPassword(ctx context.Context, plaintext string) (string, error) {
	type result struct {
		hash string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		h, err := password.Hash(plaintext)
		ch <- result{hash: h, err: err}
	}()

	timer := time.NewTimer(s.opTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", domain.ErrServiceUnavailable
	case <-timer.C:
		return "", domain.ErrServiceUnavailable
	case r := <-ch:
		return r.hash, r.err
	}
}

func (s *sessionService) verifyPassword(ctx context.Context, plaintext, hash string) (bool, error) {
	ch := make(chan bool, 1)
	go func() { ch <- password.Verify(plaintext, hash) }()

	timer := time.NewTimer(s.opTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, domain.ErrServiceUnavailable
	case <-timer.C:
		return false, domain.ErrServiceUnavailable
	case ok := <-ch:
		return ok, nil
	}
}

// Repository wrappers bound every call and translate timeouts into the
// retryable ErrServiceUnavailable.

func (s *sessionService) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	u, err := s.repo.FindByEmail(ctx, email)
	return u, s.mapRepoErr(err)
}

func (s *sessionService) findByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	u, err := s.repo.FindByID(ctx, id)
	return u, s.mapRepoErr(err)
}

func (s *sessionService) create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	u, err := s.repo.Create(ctx, user)
	return u, s.mapRepoErr(err)
}

func (s *sessionService) updatePassword(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.mapRepoErr(s.repo.UpdatePassword(ctx, id, hash))
}

func (s *sessionService) mapRepoErr(err error) error {
	if err == nil {
		return nil
	}
	// Canceled covers the client going away mid-request; neither outcome
	// is a server fault worth an error-level log.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrServiceUnavailable
	}
	return err
}
