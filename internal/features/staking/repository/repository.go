package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"qai-backend/internal/features/staking/models"
	walletrepo "qai-backend/internal/features/wallet/repository"
)

var ErrPackageNotFound = errors.New("package not found")

type PackageRepository interface {
	// ListPackages returns the whole catalog ordered by price.
	ListPackages(ctx context.Context) ([]models.Package, error)
	FindByPrice(ctx context.Context, price decimal.Decimal) (*models.Package, error)
	// SearchPackages returns one page of packages whose name contains q and
	// the total number of matches.
	SearchPackages(ctx context.Context, q models.PackageQuery) ([]models.Package, int, error)
	CreatePackage(ctx context.Context, pkg *models.Package) error
	DeletePackage(ctx context.Context, id string) error

	History(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)

	WithinTx(ctx context.Context, fn func(tx PurchaseTx) error) error
}

// PurchaseTx is the write set of one package purchase. The wallet ledger
// and the holdings live in the same transaction.
type PurchaseTx interface {
	walletrepo.Ledger
	// AddHolding creates the holding or increments its quantity by one.
	AddHolding(ctx context.Context, userID, packageID string) error
	InsertHistory(ctx context.Context, entry *models.HistoryEntry) error
}
