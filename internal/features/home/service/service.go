package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/features/home/models"
	"qai-backend/internal/features/home/repository"
)

const (
	recentRewardsLimit = 5
	rewardStatus       = "Completed"
	guestUsername      = "Guest"
)

type homeService struct {
	repo repository.HomeRepository
}

func NewHomeService(repo repository.HomeRepository) HomeService {
	return &homeService{repo: repo}
}

func (s *homeService) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}

	var (
		wallet   *models.WalletBalances
		profile  *models.Profile
		summary  *models.RewardSummary
		rewards  []models.RewardEntry
		holdings []models.Holding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		wallet, err = s.repo.EnsureWallet(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		profile, err = s.repo.Profile(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary, err = s.repo.RewardSummary(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		rewards, err = s.repo.RecentRewards(gctx, userID, recentRewardsLimit)
		return err
	})
	g.Go(func() (err error) {
		holdings, err = s.repo.Holdings(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, err.Error())
	}

	return buildDashboard(wallet, profile, summary, rewards, holdings), nil
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func buildDashboard(
	wallet *models.WalletBalances,
	profile *models.Profile,
	summary *models.RewardSummary,
	rewards []models.RewardEntry,
	holdings []models.Holding,
) *models.Dashboard {
	hasSummary := summary != nil
	if !hasSummary {
		summary = &models.RewardSummary{}
	}
	d := &models.Dashboard{
		Balances: models.BalancesView{
			USDT: num(wallet.USDT),
			QAI:  num(wallet.QAI),
			DFT:  num(wallet.DFT),
		},
		UserInfo: models.UserInfoView{Username: guestUsername},
		RewardsBreakdown: models.RewardsBreakdownView{
			Staking:  num(summary.Staking),
			Referral: num(summary.Referral),
			Matching: num(summary.Matching),
			Rank:     num(summary.Rank),
			Center:   num(summary.Center),
			// the stored total is reported as is, not re-summed
			Total: num(summary.Total),
		},
		RecentRewards: make([]models.RecentRewardView, 0, len(rewards)),
	}
	// earned DFT supersedes the raw wallet balance once a summary exists
	if hasSummary {
		d.Balances.DFT = num(summary.Total)
	}
	if profile != nil {
		d.UserInfo = models.UserInfoView{
			Username:      profile.Username,
			ReferralCode:  profile.ReferralCode,
			ReferralCount: profile.ReferralCount,
		}
	}
	for _, r := range rewards {
		d.RecentRewards = append(d.RecentRewards, models.RecentRewardView{
			ID:     r.ID,
			Amount: num(r.AmountDFT),
			Date:   r.CreatedAt.UTC().Format(time.DateOnly),
			Status: rewardStatus,
			Name:   r.Name,
		})
	}

	stats := ComputeStakingStats(holdings, summary.Total)
	d.StakingStats = models.StakingStatsView{
		TotalStaked:     num(stats.TotalStaked),
		TotalEarned:     num(stats.TotalEarned),
		MaxLimit:        num(stats.MaxLimit),
		RemainingLimit:  num(stats.RemainingLimit),
		ProgressPercent: num(stats.ProgressPercent),
	}
	return d
}
