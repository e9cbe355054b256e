package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"qai-backend/internal/features/wallet/models"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrUserNotFound   = errors.New("user not found")
	// ErrInsufficientBalance is returned by Debit when the balance would go negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type WalletRepository interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	GetOTPState(ctx context.Context, userID string) (*models.OTPState, error)
	// RecentTxs returns the newest rows of one type.
	RecentTxs(ctx context.Context, userID, txType string, limit int) ([]models.Tx, error)
	History(ctx context.Context, userID string, q models.HistoryQuery) ([]models.Tx, error)
	SetWithdrawAddress(ctx context.Context, userID, address string) error
	// EnsureDepositAddress stores address and sealedKey unless the wallet
	// already has a deposit address, and returns the address in effect.
	EnsureDepositAddress(ctx context.Context, userID, address string, sealedKey []byte) (string, error)

	WithinTx(ctx context.Context, fn func(l Ledger) error) error
}

// Ledger is the set of balance mutations, bound to one transaction.
type Ledger interface {
	// LockWallet loads the wallet FOR UPDATE.
	LockWallet(ctx context.Context, userID string) (*models.Wallet, error)
	// Debit subtracts amount from the token balance and returns the new balance.
	Debit(ctx context.Context, userID, token string, amount decimal.Decimal) (decimal.Decimal, error)
	// InsertTx appends a wallet_txs row, filling ID and CreatedAt when empty.
	InsertTx(ctx context.Context, tx *models.Tx) error
}
