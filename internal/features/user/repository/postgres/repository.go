package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	treepg "qai-backend/internal/features/tree/repository/postgres"
	"qai-backend/internal/features/user/models"
	"qai-backend/internal/features/user/repository"
	"qai-backend/internal/platform/postgres"
)

const userColumns = `id, username, email, password_hash, name, country_code,
	referral_code, referrer_id, sponsor_id, role, created_at`

type postgresRepository struct {
	db postgres.DBTX
}

func NewPostgresRepository(db postgres.DBTX) repository.UserRepository {
	return &postgresRepository{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var (
		u                              models.User
		country, referrerID, sponsorID sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &country,
		&u.ReferralCode, &referrerID, &sponsorID, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CountryCode = nullString(country)
	u.ReferrerID = nullString(referrerID)
	u.SponsorID = nullString(sponsorID)
	return &u, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func (r *postgresRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *postgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `username = lower($1) OR email = lower($1)`, login)
}

func (r *postgresRepository) FindByUsernameOrReferralCode(ctx context.Context, q string) (*models.User, error) {
	return r.getOne(ctx, `username = lower($1) OR referral_code = upper($1)`, q)
}

func (r *postgresRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}

func (r *postgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *postgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *postgresRepository) CountryExists(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM countries WHERE code = $1)`, code)
}

// SignupStore opens one transaction per signup attempt.
type SignupStore struct {
	db *sql.DB
}

func NewSignupStore(db *sql.DB) *SignupStore {
	return &SignupStore{db: db}
}

func (s *SignupStore) WithinTx(ctx context.Context, fn func(tx repository.SignupTx) error) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(newSignupTx(tx))
	})
}

type signupTx struct {
	*treepg.Repository
	tx postgres.DBTX
}

var _ repository.SignupTx = (*signupTx)(nil)

func newSignupTx(tx postgres.DBTX) *signupTx {
	return &signupTx{Repository: treepg.NewRepository(tx), tx: tx}
}

func (t *signupTx) LockUsers(ctx context.Context, ids ...string) error {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}
	}
	return rows.Err()
}

var constraintErrors = map[string]error{
	"users_referral_code_key": repository.ErrReferralCodeTaken,
	"users_username_key":      repository.ErrUsernameTaken,
	"users_email_key":         repository.ErrEmailTaken,
}

func (t *signupTx) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, name, country_code,
			referral_code, referrer_id, sponsor_id, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := t.tx.QueryRowContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Name, u.CountryCode,
		u.ReferralCode, u.ReferrerID, u.SponsorID, u.Role,
	).Scan(&u.CreatedAt)
	if err == nil {
		return nil
	}
	if constraint, ok := postgres.UniqueViolation(err); ok {
		if mapped, known := constraintErrors[constraint]; known {
			return mapped
		}
		return fmt.Errorf("%w: %s", repository.ErrUniqueViolation, constraint)
	}
	return fmt.Errorf("failed to create user: %w", err)
}

func (t *signupTx) CreateWallet(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO user_wallets (user_id) VALUES ($1)`, userID)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (t *signupTx) CreateRewardSummary(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO user_reward_summaries (user_id) VALUES ($1)`, userID)
	if err != nil {
		return fmt.Errorf("failed to create reward summary: %w", err)
	}
	return nil
}

func (t *signupTx) CreateReferralStats(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO user_referral_stats (user_id) VALUES ($1)`, userID)
	if err != nil {
		return fmt.Errorf("failed to create referral stats: %w", err)
	}
	return nil
}
