package service

import (
	"context"
	"time"

	"qai-backend/internal/features/user/models"
)

type UserService interface {
	Signup(ctx context.Context, in models.SignupInput) (*models.User, error)
	Login(ctx context.Context, in models.LoginInput) (*models.LoginResult, error)
	// ResolveUser finds a user by username or referral code.
	ResolveUser(ctx context.Context, q string) (*models.ResolvedUser, error)
}

// TokenIssuer signs access tokens for logged in users.
type TokenIssuer interface {
	Issue(userID, username, role string) (string, time.Time, error)
}
