package service

import (
	"github.com/shopspring/decimal"

	"qai-backend/internal/features/home/models"
)

// LimitMultiplier caps lifetime earnings at 300% of the staked principal.
var LimitMultiplier = decimal.NewFromInt(3)

var hundred = decimal.NewFromInt(100)

// ComputeStakingStats derives staking progress from owned packages and the
// stored total earned. Progress is clamped to [0, 100] and rounded to one
// decimal; it is 0 when nothing is staked.
func ComputeStakingStats(holdings []models.Holding, totalEarned decimal.Decimal) models.StakingStats {
	staked := decimal.Zero
	for _, h := range holdings {
		staked = staked.Add(h.Price.Mul(decimal.NewFromInt(int64(h.Quantity))))
	}

	maxLimit := staked.Mul(LimitMultiplier)
	remaining := decimal.Max(decimal.Zero, maxLimit.Sub(totalEarned))

	progress := decimal.Zero
	if maxLimit.IsPositive() {
		progress = totalEarned.Div(maxLimit).Mul(hundred)
		if progress.GreaterThan(hundred) {
			progress = hundred
		}
		if progress.IsNegative() {
			progress = decimal.Zero
		}
	}

	return models.StakingStats{
		TotalStaked:     staked,
		TotalEarned:     totalEarned,
		MaxLimit:        maxLimit,
		RemainingLimit:  remaining,
		ProgressPercent: progress.Round(1),
	}
}
