package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qai-backend/internal/features/home/models"
	"qai-backend/internal/features/home/repository"
	"qai-backend/internal/platform/postgres"
)

type postgresRepository struct {
	db postgres.DBTX
}

func NewPostgresRepository(db postgres.DBTX) repository.HomeRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) EnsureWallet(ctx context.Context, userID string) (*models.WalletBalances, error) {
	query := `
		INSERT INTO user_wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING balance_usdt, balance_qai, balance_dft
	`
	var w models.WalletBalances
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&w.USDT, &w.QAI, &w.DFT); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return &w, nil
}

func (r *postgresRepository) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT u.username, u.referral_code,
			(SELECT COUNT(*) FROM users c WHERE c.referrer_id = u.id)
		FROM users u
		WHERE u.id = $1
	`
	var p models.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.Username, &p.ReferralCode, &p.ReferralCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) RewardSummary(ctx context.Context, userID string) (*models.RewardSummary, error) {
	query := `
		SELECT total_staking, total_referral, total_matching, total_rank, total_center, total_dft
		FROM user_reward_summaries
		WHERE user_id = $1
	`
	var s models.RewardSummary
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.Staking, &s.Referral, &s.Matching, &s.Rank, &s.Center, &s.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward summary: %w", err)
	}
	return &s, nil
}

func (r *postgresRepository) RecentRewards(ctx context.Context, userID string, limit int) ([]models.RewardEntry, error) {
	query := `
		SELECT id, name, amount_dft, created_at
		FROM user_reward_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward history: %w", err)
	}
	defer rows.Close()

	var entries []models.RewardEntry
	for rows.Next() {
		var e models.RewardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.AmountDFT, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresRepository) Holdings(ctx context.Context, userID string) ([]models.Holding, error) {
	query := `
		SELECT p.price, up.quantity
		FROM user_packages up
		JOIN packages p ON p.id = up.package_id
		WHERE up.user_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.Price, &h.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
