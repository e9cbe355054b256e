package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"qai-backend/internal/features/wallet/models"
	"qai-backend/internal/features/wallet/repository"
	"qai-backend/internal/platform/postgres"
)

const txColumns = `id, user_id, token_code, tx_type, amount, status, memo, tx_hash,
	from_address, to_address, created_at`

var balanceColumns = map[string]string{
	models.TokenUSDT: "balance_usdt",
	models.TokenQAI:  "balance_qai",
	models.TokenDFT:  "balance_dft",
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.WalletRepository {
	return &postgresRepository{db: db}
}

func scanWallet(row interface{ Scan(...interface{}) error }) (*models.Wallet, error) {
	var (
		w                 models.Wallet
		deposit, withdraw sql.NullString
	)
	if err := row.Scan(&w.UserID, &w.USDT, &w.QAI, &w.DFT, &deposit, &withdraw); err != nil {
		return nil, err
	}
	if deposit.Valid {
		w.DepositAddress = &deposit.String
	}
	if withdraw.Valid {
		w.WithdrawAddress = &withdraw.String
	}
	return &w, nil
}

func (r *postgresRepository) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	query := `
		SELECT user_id, balance_usdt, balance_qai, balance_dft, deposit_address, withdraw_address
		FROM user_wallets
		WHERE user_id = $1
	`
	w, err := scanWallet(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

func (r *postgresRepository) GetOTPState(ctx context.Context, userID string) (*models.OTPState, error) {
	query := `SELECT email, google_otp_enabled, google_otp_secret FROM users WHERE id = $1`
	var (
		s      models.OTPState
		secret sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.Email, &s.Enabled, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp state: %w", err)
	}
	if secret.Valid {
		s.Secret = &secret.String
	}
	return &s, nil
}

func scanTxs(rows *sql.Rows) ([]models.Tx, error) {
	defer rows.Close()
	var txs []models.Tx
	for rows.Next() {
		var (
			t                            models.Tx
			memo, hash, fromAddr, toAddr sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenCode, &t.TxType, &t.Amount, &t.Status,
			&memo, &hash, &fromAddr, &toAddr, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet tx: %w", err)
		}
		t.Memo = nullable(memo)
		t.TxHash = nullable(hash)
		t.FromAddress = nullable(fromAddr)
		t.ToAddress = nullable(toAddr)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func (r *postgresRepository) RecentTxs(ctx context.Context, userID, txType string, limit int) ([]models.Tx, error) {
	query := `SELECT ` + txColumns + `
		FROM wallet_txs
		WHERE user_id = $1 AND tx_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, txType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent txs: %w", err)
	}
	return scanTxs(rows)
}

// History returns up to q.Limit rows strictly after q.Cursor.
func (r *postgresRepository) History(ctx context.Context, userID string, q models.HistoryQuery) ([]models.Tx, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []interface{}{userID}
	)
	if q.TxType != "" {
		args = append(args, q.TxType)
		where = append(where, fmt.Sprintf("tx_type = $%d", len(args)))
	}
	if q.Cursor != nil {
		args = append(args, q.Cursor.CreatedAt, q.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, q.Limit)

	query := fmt.Sprintf(`SELECT %s
		FROM wallet_txs
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, txColumns, strings.Join(where, " AND "), len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet history: %w", err)
	}
	return scanTxs(rows)
}

func (r *postgresRepository) SetWithdrawAddress(ctx context.Context, userID, address string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_wallets SET withdraw_address = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, address)
	if err != nil {
		return fmt.Errorf("failed to set withdraw address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set withdraw address: %w", err)
	}
	if n == 0 {
		return repository.ErrWalletNotFound
	}
	return nil
}

func (r *postgresRepository) EnsureDepositAddress(ctx context.Context, userID, address string, sealedKey []byte) (string, error) {
	query := `
		INSERT INTO user_wallets (user_id, deposit_address, deposit_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			deposit_address = COALESCE(user_wallets.deposit_address, EXCLUDED.deposit_address),
			deposit_key = CASE WHEN user_wallets.deposit_address IS NULL
				THEN EXCLUDED.deposit_key ELSE user_wallets.deposit_key END,
			updated_at = NOW()
		RETURNING deposit_address
	`
	var current string
	if err := r.db.QueryRowContext(ctx, query, userID, address, sealedKey).Scan(&current); err != nil {
		return "", fmt.Errorf("failed to ensure deposit address: %w", err)
	}
	return current, nil
}

func (r *postgresRepository) WithinTx(ctx context.Context, fn func(l repository.Ledger) error) error {
	return postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(NewLedger(tx))
	})
}

// Ledger implements repository.Ledger on a transaction. Other features embed
// it to move funds inside their own transactions.
type Ledger struct {
	db postgres.DBTX
}

var _ repository.Ledger = (*Ledger)(nil)

func NewLedger(db postgres.DBTX) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) LockWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	query := `
		SELECT user_id, balance_usdt, balance_qai, balance_dft, deposit_address, withdraw_address
		FROM user_wallets
		WHERE user_id = $1
		FOR UPDATE
	`
	w, err := scanWallet(l.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return w, nil
}

func (l *Ledger) Debit(ctx context.Context, userID, token string, amount decimal.Decimal) (decimal.Decimal, error) {
	column, ok := balanceColumns[token]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown token %q", token)
	}
	query := fmt.Sprintf(`
		UPDATE user_wallets
		SET %[1]s = %[1]s - $2, updated_at = NOW()
		WHERE user_id = $1 AND %[1]s >= $2
		RETURNING %[1]s
	`, column)

	var balance decimal.Decimal
	err := l.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, repository.ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to debit wallet: %w", err)
	}
	return balance, nil
}

func (l *Ledger) InsertTx(ctx context.Context, t *models.Tx) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO wallet_txs (id, user_id, token_code, tx_type, amount, status, memo, tx_hash,
			from_address, to_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := l.db.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.TokenCode, t.TxType, t.Amount, t.Status, t.Memo, t.TxHash,
		t.FromAddress, t.ToAddress,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wallet tx: %w", err)
	}
	return nil
}
