package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"qai-backend/internal/common/cache"
	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/logger"
	"qai-backend/internal/common/metrics"
	"qai-backend/internal/features/wallet/models"
	"qai-backend/internal/features/wallet/repository"
	"qai-backend/internal/platform/evm"
)

const (
	recentLimit         = 5
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	withdrawMemo  = "user requested withdraw. OTP used: true"
	historyDate   = "2006-01-02 15:04"
	otpReplayKey  = "otp:used:%s:%s"
	defaultReplay = 150 * time.Second
)

type Options struct {
	DepositTimeout time.Duration
	OTPReplayTTL   time.Duration
}

type walletService struct {
	repo    repository.WalletRepository
	sealer  *evm.KeySealer
	otp     OTPVerifier
	replay  *cache.CacheService
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// NewWalletService builds the wallet service. replay may be nil, which
// disables the OTP replay guard.
func NewWalletService(
	repo repository.WalletRepository,
	sealer *evm.KeySealer,
	verifier OTPVerifier,
	replay *cache.CacheService,
	m *metrics.Metrics,
	opts Options,
) WalletService {
	if opts.DepositTimeout <= 0 {
		opts.DepositTimeout = 8 * time.Second
	}
	if opts.OTPReplayTTL <= 0 {
		opts.OTPReplayTTL = defaultReplay
	}
	return &walletService{
		repo:    repo,
		sealer:  sealer,
		otp:     verifier,
		replay:  replay,
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func (s *walletService) WithdrawInfo(ctx context.Context, userID string) (*models.WithdrawInfo, error) {
	var (
		wallet *models.Wallet
		otp    *models.OTPState
		txs    []models.Tx
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		wallet, err = s.repo.GetWallet(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		otp, err = s.repo.GetOTPState(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.repo.RecentTxs(gctx, userID, models.TxTypeWithdraw, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) || errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, err.Error())
	}

	info := &models.WithdrawInfo{
		Balances:         models.BalancesView{USDT: num(wallet.USDT), QAI: num(wallet.QAI), DFT: num(wallet.DFT)},
		WithdrawAddress:  wallet.WithdrawAddress,
		GoogleOTPEnabled: otp.Enabled,
		RecentWithdraws:  make([]models.WithdrawItem, 0, len(txs)),
	}
	for _, t := range txs {
		info.RecentWithdraws = append(info.RecentWithdraws, models.WithdrawItem{
			ID:      t.ID,
			Date:    t.CreatedAt.UTC().Format(time.DateOnly),
			Amount:  t.Amount.StringFixed(2),
			Network: evm.Network,
			Status:  t.Status,
		})
	}
	return info, nil
}

// ParseAmount accepts a positive decimal amount that a money column stores
// exactly.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() || !models.Storable(amount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

func (s *walletService) Withdraw(ctx context.Context, userID string, in models.WithdrawInput) (*models.WithdrawResult, error) {
	res, err := s.withdraw(ctx, userID, in)
	code := "OK"
	if err != nil {
		code = string(apperrors.CodeOf(err, apperrors.ErrCodeUnknown))
	}
	s.metrics.ObserveWithdraw(code)
	return res, err
}

func (s *walletService) withdraw(ctx context.Context, userID string, in models.WithdrawInput) (*models.WithdrawResult, error) {
	token := strings.ToUpper(strings.TrimSpace(in.Token))
	if token != models.TokenUSDT {
		return nil, ErrInvalidToken
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	otp, err := s.repo.GetOTPState(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, err.Error())
	}
	wallet, err := s.repo.GetWallet(ctx, userID)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, err.Error())
	}

	if !otp.Enabled || otp.Secret == nil || *otp.Secret == "" {
		return nil, ErrOTPNotEnabled
	}
	code := strings.TrimSpace(in.OTPCode)
	if !s.otp.Verify(code, *otp.Secret, s.now()) {
		return nil, ErrInvalidOTP
	}
	if err := s.claimOTP(ctx, userID, code); err != nil {
		return nil, err
	}

	if wallet.WithdrawAddress == nil || *wallet.WithdrawAddress == "" {
		return nil, ErrNoWithdrawAddress
	}

	var result models.WithdrawResult
	err = s.repo.WithinTx(ctx, func(l repository.Ledger) error {
		locked, err := l.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		if locked.USDT.LessThan(amount) {
			return repository.ErrInsufficientBalance
		}
		balance, err := l.Debit(ctx, userID, token, amount)
		if err != nil {
			return err
		}

		memo := withdrawMemo
		tx := &models.Tx{
			UserID:    userID,
			TokenCode: token,
			TxType:    models.TxTypeWithdraw,
			Amount:    amount,
			Status:    models.TxStatusPending,
			Memo:      &memo,
			ToAddress: locked.WithdrawAddress,
		}
		if err := l.InsertTx(ctx, tx); err != nil {
			return err
		}
		result = models.WithdrawResult{TxID: tx.ID, Balance: num(balance)}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrInsufficientBalance):
		return nil, ErrInsufficientBalance
	case errors.Is(err, repository.ErrWalletNotFound):
		return nil, ErrWalletNotFound
	default:
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, err.Error())
	}

	logger.Info().
		Str("user_id", userID).
		Str("tx_id", result.TxID).
		Str("amount", amount.String()).
		Msg("Withdraw requested")
	return &result, nil
}

// claimOTP marks a code as used for the replay window. A code accepted once
// is rejected on every later request in the same window.
func (s *walletService) claimOTP(ctx context.Context, userID, code string) error {
	if s.replay == nil {
		return nil
	}
	fresh, err := s.replay.SetOnce(ctx, fmt.Sprintf(otpReplayKey, userID, code), s.opts.OTPReplayTTL)
	if err != nil {
		return apperrors.NewInternalError("claim otp", err)
	}
	if !fresh {
		return ErrInvalidOTP
	}
	return nil
}

func (s *walletService) SetWithdrawAddress(ctx context.Context, userID, address string) (string, error) {
	normalized, err := evm.NormalizeAddress(address)
	if err != nil {
		return "", ErrInvalidAddress
	}
	err = s.repo.SetWithdrawAddress(ctx, userID, normalized)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return "", ErrWalletNotFound
	}
	if err != nil {
		return "", apperrors.NewInternalError("set withdraw address", err)
	}
	return normalized, nil
}

func (s *walletService) Deposit(ctx context.Context, userID string) (*models.DepositInfo, error) {
	account, err := evm.NewDepositAccount()
	if err != nil {
		return nil, apperrors.NewInternalError("generate deposit account", err)
	}
	sealed, err := s.sealer.Seal(account.PrivateKey)
	if err != nil {
		return nil, apperrors.NewInternalError("seal deposit key", err)
	}
	sealedJSON, err := json.Marshal(sealed)
	if err != nil {
		return nil, apperrors.NewInternalError("encode deposit key", err)
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.DepositTimeout)
	defer cancel()

	var (
		address string
		txs     []models.Tx
	)
	g, gctx := errgroup.WithContext(tctx)
	g.Go(func() (err error) {
		address, err = s.repo.EnsureDepositAddress(gctx, userID, account.Address, sealedJSON)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.repo.RecentTxs(gctx, userID, models.TxTypeDeposit, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Wrap(err, ErrDepositTimeout.Code, ErrDepositTimeout.Message)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "server error")
	}

	if address == account.Address {
		s.metrics.ObserveDepositAddress()
		logger.Info().Str("user_id", userID).Str("address", address).Msg("Deposit address issued")
	}
	if normalized, err := evm.NormalizeAddress(address); err == nil {
		address = normalized
	}

	info := &models.DepositInfo{
		Address:        address,
		Network:        evm.Network,
		RecentDeposits: make([]models.DepositItem, 0, len(txs)),
	}
	for _, t := range txs {
		info.RecentDeposits = append(info.RecentDeposits, models.DepositItem{
			ID:        t.ID,
			Amount:    t.Amount.String(),
			Token:     t.TokenCode,
			TxHash:    t.TxHash,
			Status:    t.Status,
			CreatedAt: t.CreatedAt,
		})
	}
	return info, nil
}

// ClampLimit applies the history page size bounds.
func ClampLimit(limit int) int {
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

func displayStatus(status string) string {
	switch status {
	case models.TxStatusCompleted, models.TxStatusPending:
		return status
	}
	return models.TxStatusFailed
}

func (s *walletService) History(ctx context.Context, userID string, limit int, cursor, txType string) (*models.HistoryPage, error) {
	q := models.HistoryQuery{Limit: ClampLimit(limit)}

	switch txType = strings.ToUpper(strings.TrimSpace(txType)); txType {
	case "":
	case models.TxTypeDeposit, models.TxTypeWithdraw, models.TxTypeSwap:
		q.TxType = txType
	default:
		return nil, ErrInvalidTxType
	}
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		q.Cursor = c
	}

	pageSize := q.Limit
	q.Limit = pageSize + 1
	rows, err := s.repo.History(ctx, userID, q)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, err.Error())
	}

	page := &models.HistoryPage{Items: make([]models.HistoryItem, 0, pageSize)}
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		page.NextCursor = EncodeCursor(models.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	for _, t := range rows {
		address := t.ToAddress
		if t.TxType == models.TxTypeDeposit {
			address = t.FromAddress
		}
		page.Items = append(page.Items, models.HistoryItem{
			ID:      t.ID,
			Type:    t.TxType,
			Token:   t.TokenCode,
			Amount:  num(t.Amount),
			Status:  displayStatus(t.Status),
			Memo:    t.Memo,
			Address: address,
			TxHash:  t.TxHash,
			Date:    t.CreatedAt.UTC().Format(historyDate),
		})
	}
	return page, nil
}
