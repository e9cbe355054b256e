package service

import (
	"context"

	"qai-backend/internal/features/wallet/models"
)

type WalletService interface {
	WithdrawInfo(ctx context.Context, userID string) (*models.WithdrawInfo, error)
	Withdraw(ctx context.Context, userID string, in models.WithdrawInput) (*models.WithdrawResult, error)
	SetWithdrawAddress(ctx context.Context, userID, address string) (string, error)
	Deposit(ctx context.Context, userID string) (*models.DepositInfo, error)
	History(ctx context.Context, userID string, limit int, cursor, txType string) (*models.HistoryPage, error)
}
