package service

import (
	"context"

	"qai-backend/internal/features/staking/models"
)

type StakingService interface {
	Packages(ctx context.Context) ([]models.PackageView, error)
	// Purchase buys the package whose price equals amount.
	Purchase(ctx context.Context, userID, amount string) (*models.PurchaseResult, error)
	History(ctx context.Context, userID string, limit int) ([]models.HistoryItem, error)
}

// PackageAdminService manages the package catalog.
type PackageAdminService interface {
	ListPackages(ctx context.Context, q models.PackageQuery) (*models.PackagePage, error)
	CreatePackage(ctx context.Context, in models.CreatePackageInput) (*models.PackageView, error)
	DeletePackage(ctx context.Context, id string) error
}
