package repository

import (
	"context"
	"errors"

	treerepo "qai-backend/internal/features/tree/repository"
	"qai-backend/internal/features/user/models"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// Unique violations raised by CreateUser, keyed by the violated column.
	ErrReferralCodeTaken = errors.New("referral code already taken")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrEmailTaken        = errors.New("email already taken")
	ErrUniqueViolation   = errors.New("unique constraint violated")
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByLogin matches a lowercased username or email.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	// FindByUsernameOrReferralCode resolves referrer and sponsor input.
	FindByUsernameOrReferralCode(ctx context.Context, q string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CountryExists(ctx context.Context, code string) (bool, error)
}

// SignupStore runs the placement unit of work in one transaction.
type SignupStore interface {
	WithinTx(ctx context.Context, fn func(tx SignupTx) error) error
}

// SignupTx is every write of a signup, bound to one transaction.
type SignupTx interface {
	treerepo.EdgeStore

	// LockUsers takes row locks on the given users in id order.
	LockUsers(ctx context.Context, ids ...string) error
	// CreateUser inserts the user and fills CreatedAt. Unique violations are
	// reported as ErrReferralCodeTaken, ErrUsernameTaken, ErrEmailTaken or
	// ErrUniqueViolation.
	CreateUser(ctx context.Context, user *models.User) error
	CreateWallet(ctx context.Context, userID string) error
	CreateRewardSummary(ctx context.Context, userID string) error
	CreateReferralStats(ctx context.Context, userID string) error
}
