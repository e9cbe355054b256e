package repository

import (
	"context"

	"qai-backend/internal/features/home/models"
)

// HomeRepository serves the five dashboard reads. Each method is safe to call
// concurrently.
type HomeRepository interface {
	// EnsureWallet returns the wallet balances, creating a zero wallet if missing.
	EnsureWallet(ctx context.Context, userID string) (*models.WalletBalances, error)
	// Profile returns nil when the user does not exist.
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	// RewardSummary returns nil when no summary row exists.
	RewardSummary(ctx context.Context, userID string) (*models.RewardSummary, error)
	RecentRewards(ctx context.Context, userID string, limit int) ([]models.RewardEntry, error)
	Holdings(ctx context.Context, userID string) ([]models.Holding, error)
}
