package ports

import (
	"context"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

// RegisterInput carries everything needed to create an account.
// ClientAddr is the originating network address, used for rate limiting.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	ClientAddr string
}

// Session is the result of any operation that issues tokens: the sanitized
// user plus a fresh access/refresh pair. ExpiresIn is the access-token
// lifetime in seconds.
type Session struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// SessionService orchestrates the authentication lifecycle.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password, clientAddr string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	CurrentUser(ctx context.Context, subjectID string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Logout(ctx context.Context, subjectID string) error
}
