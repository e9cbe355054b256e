package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TokenUSDT = "USDT"
	TokenQAI  = "QAI"
	TokenDFT  = "DFT"

	TxTypeDeposit  = "DEPOSIT"
	TxTypeWithdraw = "WITHDRAW"
	TxTypeSwap     = "SWAP"

	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusFailed    = "FAILED"
	TxStatusRejected  = "REJECTED"
)

// AmountScale is the number of fractional digits the NUMERIC(36,18) money
// columns keep.
const AmountScale = 18

var maxAmount = decimal.New(1, 36-AmountScale)

// Storable reports whether d fits a money column without rounding.
func Storable(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale)) && d.Abs().LessThan(maxAmount)
}

type Wallet struct {
	UserID          string
	USDT            decimal.Decimal
	QAI             decimal.Decimal
	DFT             decimal.Decimal
	DepositAddress  *string
	WithdrawAddress *string
}

// OTPState is the user's Google OTP enrolment.
type OTPState struct {
	Email   string
	Enabled bool
	Secret  *string
}

// Tx is one wallet_txs row.
type Tx struct {
	ID          string
	UserID      string
	TokenCode   string
	TxType      string
	Amount      decimal.Decimal
	Status      string
	Memo        *string
	TxHash      *string
	FromAddress *string
	ToAddress   *string
	CreatedAt   time.Time
}

// Cursor is a keyset position in (created_at desc, id desc) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type HistoryQuery struct {
	Limit  int
	Cursor *Cursor
	// TxType filters by type when not empty.
	TxType string
}

// View models.

type BalancesView struct {
	USDT float64 `json:"usdt"`
	QAI  float64 `json:"qai"`
	DFT  float64 `json:"dft"`
}

type WithdrawItem struct {
	ID      string `json:"id"`
	Date    string `json:"date" example:"2024-03-01"`
	Amount  string `json:"amount" example:"25.00"`
	Network string `json:"network" example:"BEP20"`
	Status  string `json:"status" example:"PENDING"`
}

type WithdrawInfo struct {
	Balances         BalancesView   `json:"balances"`
	WithdrawAddress  *string        `json:"withdrawAddress"`
	GoogleOTPEnabled bool           `json:"googleOtpEnabled"`
	RecentWithdraws  []WithdrawItem `json:"recentWithdraws"`
}

type WithdrawInput struct {
	Token   string
	Amount  string
	OTPCode string
}

type WithdrawResult struct {
	TxID    string  `json:"txId"`
	Balance float64 `json:"balance"`
}

type DepositItem struct {
	ID        string    `json:"id"`
	Amount    string    `json:"amount"`
	Token     string    `json:"token"`
	TxHash    *string   `json:"txHash"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type DepositInfo struct {
	Address        string        `json:"address" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
	Network        string        `json:"network" example:"BEP20"`
	RecentDeposits []DepositItem `json:"recentDeposits"`
}

type HistoryItem struct {
	ID      string  `json:"id"`
	Type    string  `json:"type" example:"WITHDRAW"`
	Token   string  `json:"token" example:"USDT"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status" example:"COMPLETED"`
	Memo    *string `json:"memo"`
	Address *string `json:"address"`
	TxHash  *string `json:"txHash"`
	Date    string  `json:"date" example:"2024-03-01 14:05"`
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}
