package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stored rows read by the dashboard.

type WalletBalances struct {
	USDT decimal.Decimal
	QAI  decimal.Decimal
	DFT  decimal.Decimal
}

type Profile struct {
	Username      string
	ReferralCode  string
	ReferralCount int
}

type RewardSummary struct {
	Staking  decimal.Decimal
	Referral decimal.Decimal
	Matching decimal.Decimal
	Rank     decimal.Decimal
	Center   decimal.Decimal
	Total    decimal.Decimal
}

type RewardEntry struct {
	ID        string
	Name      string
	AmountDFT decimal.Decimal
	CreatedAt time.Time
}

// Holding is one owned package line.
type Holding struct {
	Price    decimal.Decimal
	Quantity int
}

// StakingStats is the staking progress derived from holdings and earnings.
type StakingStats struct {
	TotalStaked     decimal.Decimal
	TotalEarned     decimal.Decimal
	MaxLimit        decimal.Decimal
	RemainingLimit  decimal.Decimal
	ProgressPercent decimal.Decimal
}

// View models. Amounts are JSON numbers.

type BalancesView struct {
	USDT float64 `json:"usdt" example:"1250.5"`
	QAI  float64 `json:"qai" example:"0"`
	DFT  float64 `json:"dft" example:"500"`
}

type UserInfoView struct {
	Username      string `json:"username" example:"alice"`
	ReferralCode  string `json:"referralCode" example:"K7QH2M9X"`
	ReferralCount int    `json:"referralCount" example:"3"`
}

type RewardsBreakdownView struct {
	Staking  float64 `json:"staking"`
	Referral float64 `json:"referral"`
	Matching float64 `json:"matching"`
	Rank     float64 `json:"rank"`
	Center   float64 `json:"center"`
	Total    float64 `json:"total"`
}

type RecentRewardView struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date" example:"2024-03-01"`
	Status string  `json:"status" example:"Completed"`
	Name   string  `json:"name" example:"Referral"`
}

type StakingStatsView struct {
	TotalStaked     float64 `json:"totalStaked" example:"250"`
	TotalEarned     float64 `json:"totalEarned" example:"300"`
	MaxLimit        float64 `json:"maxLimit" example:"750"`
	RemainingLimit  float64 `json:"remainingLimit" example:"450"`
	ProgressPercent float64 `json:"progressPercent" example:"40"`
}

// Dashboard is the home screen of an authenticated user.
type Dashboard struct {
	Balances         BalancesView         `json:"balances"`
	UserInfo         UserInfoView         `json:"userInfo"`
	RewardsBreakdown RewardsBreakdownView `json:"rewardsBreakdown"`
	RecentRewards    []RecentRewardView   `json:"recentRewards"`
	StakingStats     StakingStatsView     `json:"stakingStats"`
}
