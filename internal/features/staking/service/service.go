package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"qai-backend/internal/common/cache"
	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/logger"
	"qai-backend/internal/common/metrics"
	"qai-backend/internal/features/staking/models"
	"qai-backend/internal/features/staking/repository"
	walletmodels "qai-backend/internal/features/wallet/models"
	walletrepo "qai-backend/internal/features/wallet/repository"
)

const (
	packagesCacheKey     = "packages:all"
	packagesCachePattern = "packages:*"
	packagesCacheTTL     = 10 * time.Minute

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
	DefaultPageSize     = 10
	MaxPageSize         = 100
	maxNameLength       = 100
)

// Service implements StakingService and PackageAdminService.
type Service struct {
	repo    repository.PackageRepository
	cache   *cache.CacheService
	metrics *metrics.Metrics
}

// NewStakingService returns a service implementing both StakingService and
// PackageAdminService. cache may be nil.
func NewStakingService(repo repository.PackageRepository, cache *cache.CacheService, m *metrics.Metrics) *Service {
	return &Service{repo: repo, cache: cache, metrics: m}
}

var (
	_ StakingService      = (*Service)(nil)
	_ PackageAdminService = (*Service)(nil)
)

func toViews(pkgs []models.Package) []models.PackageView {
	views := make([]models.PackageView, 0, len(pkgs))
	for i := range pkgs {
		views = append(views, pkgs[i].ToView())
	}
	return views
}

func (s *Service) Packages(ctx context.Context) ([]models.PackageView, error) {
	var pkgs []models.Package
	load := func() (interface{}, error) {
		return s.repo.ListPackages(ctx)
	}

	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, apperrors.NewInternalError("list packages", err)
		}
		pkgs = v.([]models.Package)
	} else if err := s.cache.GetOrSet(ctx, packagesCacheKey, &pkgs, packagesCacheTTL, load); err != nil {
		return nil, apperrors.NewInternalError("list packages", err)
	}
	return toViews(pkgs), nil
}

func (s *Service) Purchase(ctx context.Context, userID, amount string) (*models.PurchaseResult, error) {
	res, err := s.purchase(ctx, userID, amount)
	code := "OK"
	if err != nil {
		code = string(apperrors.CodeOf(err, apperrors.ErrCodeUnknown))
	}
	s.metrics.ObserveStaking(code)
	return res, err
}

func (s *Service) purchase(ctx context.Context, userID, raw string) (*models.PurchaseResult, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	pkg, err := s.repo.FindByPrice(ctx, amount)
	if errors.Is(err, repository.ErrPackageNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, apperrors.NewInternalError("find package", err)
	}

	var balance decimal.Decimal
	err = s.repo.WithinTx(ctx, func(tx repository.PurchaseTx) error {
		wallet, err := tx.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		if wallet.USDT.LessThan(pkg.Price) {
			return walletrepo.ErrInsufficientBalance
		}
		if balance, err = tx.Debit(ctx, userID, walletmodels.TokenUSDT, pkg.Price); err != nil {
			return err
		}
		if err := tx.AddHolding(ctx, userID, pkg.ID); err != nil {
			return err
		}
		if err := tx.InsertHistory(ctx, &models.HistoryEntry{
			UserID:      userID,
			PackageID:   pkg.ID,
			PackageName: pkg.Name,
			Quantity:    1,
			UnitPrice:   pkg.Price,
			TotalPrice:  pkg.Price,
		}); err != nil {
			return err
		}
		memo := "Staking Package: " + pkg.Name
		return tx.InsertTx(ctx, &walletmodels.Tx{
			UserID:    userID,
			TokenCode: walletmodels.TokenUSDT,
			TxType:    walletmodels.TxTypeWithdraw,
			Amount:    pkg.Price,
			Status:    walletmodels.TxStatusCompleted,
			Memo:      &memo,
		})
	})
	switch {
	case err == nil:
	case errors.Is(err, walletrepo.ErrInsufficientBalance):
		return nil, ErrInsufficientFunds
	case errors.Is(err, walletrepo.ErrWalletNotFound):
		return nil, ErrWalletNotFound
	default:
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "server error")
	}

	logger.Info().
		Str("user_id", userID).
		Str("package_id", pkg.ID).
		Str("price", pkg.Price.String()).
		Msg("Staking package purchased")

	return &models.PurchaseResult{Balance: balance.InexactFloat64(), PackageName: pkg.Name}, nil
}

// ClampHistoryLimit applies the staking history page size bounds.
func ClampHistoryLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultHistoryLimit
	case limit < 1:
		return 1
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.HistoryItem, error) {
	entries, err := s.repo.History(ctx, userID, ClampHistoryLimit(limit))
	if err != nil {
		return nil, apperrors.NewInternalError("staking history", err)
	}

	items := make([]models.HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.HistoryItem{
			ID:          e.ID,
			Date:        e.CreatedAt.UTC().Format(time.RFC3339),
			Amount:      e.TotalPrice.InexactFloat64(),
			Currency:    models.PurchaseCurrency,
			Status:      models.PurchaseStatus,
			PackageName: e.PackageName,
		})
	}
	return items, nil
}

func (s *Service) ListPackages(ctx context.Context, q models.PackageQuery) (*models.PackagePage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Size == 0:
		q.Size = DefaultPageSize
	case q.Size < 1:
		q.Size = 1
	case q.Size > MaxPageSize:
		q.Size = MaxPageSize
	}
	q.Q = strings.TrimSpace(q.Q)

	pkgs, total, err := s.repo.SearchPackages(ctx, q)
	if err != nil {
		return nil, apperrors.NewInternalError("search packages", err)
	}
	return &models.PackagePage{Items: toViews(pkgs), Total: total, Page: q.Page, Size: q.Size}, nil
}

func (s *Service) CreatePackage(ctx context.Context, in models.CreatePackageInput) (*models.PackageView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrInvalidName
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || !price.IsPositive() || !walletmodels.Storable(price) {
		return nil, ErrInvalidPrice
	}

	pkg := &models.Package{Name: name, Price: price}
	if err := s.repo.CreatePackage(ctx, pkg); err != nil {
		return nil, apperrors.NewInternalError("create package", err)
	}
	s.invalidate(ctx)

	logger.Info().Str("package_id", pkg.ID).Str("name", name).Str("price", price.String()).Msg("Package created")
	view := pkg.ToView()
	return &view, nil
}

func (s *Service) DeletePackage(ctx context.Context, id string) error {
	err := s.repo.DeletePackage(ctx, strings.TrimSpace(id))
	if errors.Is(err, repository.ErrPackageNotFound) {
		return apperrors.NewNotFoundError("package")
	}
	if err != nil {
		return apperrors.NewInternalError("delete package", err)
	}
	s.invalidate(ctx)

	logger.Info().Str("package_id", id).Msg("Package deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, packagesCachePattern); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate package cache")
	}
}
