package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"qai-backend/internal/features/wallet/models"
	"qai-backend/internal/features/wallet/repository"
)

type fakeRepo struct {
	wallets map[string]models.Wallet
	otp     map[string]models.OTPState
	txs     []models.Tx
	keys    map[string][]byte

	// slow blocks EnsureDepositAddress until the context ends.
	slow bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		wallets: make(map[string]models.Wallet),
		otp:     make(map[string]models.OTPState),
		keys:    make(map[string][]byte),
	}
}

func (f *fakeRepo) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	w, ok := f.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	return &w, nil
}

func (f *fakeRepo) GetOTPState(ctx context.Context, userID string) (*models.OTPState, error) {
	s, ok := f.otp[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &s, nil
}

func (f *fakeRepo) sorted(userID, txType string) []models.Tx {
	var out []models.Tx
	for _, t := range f.txs {
		if t.UserID == userID && (txType == "" || t.TxType == txType) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeRepo) RecentTxs(ctx context.Context, userID, txType string, limit int) ([]models.Tx, error) {
	out := f.sorted(userID, txType)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) History(ctx context.Context, userID string, q models.HistoryQuery) ([]models.Tx, error) {
	var out []models.Tx
	for _, t := range f.sorted(userID, q.TxType) {
		if q.Cursor != nil {
			c := q.Cursor
			if t.CreatedAt.After(c.CreatedAt) || (t.CreatedAt.Equal(c.CreatedAt) && t.ID >= c.ID) {
				continue
			}
		}
		out = append(out, t)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) SetWithdrawAddress(ctx context.Context, userID, address string) error {
	w, ok := f.wallets[userID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	w.WithdrawAddress = &address
	f.wallets[userID] = w
	return nil
}

func (f *fakeRepo) EnsureDepositAddress(ctx context.Context, userID, address string, sealedKey []byte) (string, error) {
	if f.slow {
		<-ctx.Done()
		return "", ctx.Err()
	}
	w := f.wallets[userID]
	w.UserID = userID
	if w.DepositAddress == nil {
		w.DepositAddress = &address
		f.keys[userID] = sealedKey
	}
	f.wallets[userID] = w
	return *w.DepositAddress, nil
}

func (f *fakeRepo) WithinTx(ctx context.Context, fn func(l repository.Ledger) error) error {
	l := &fakeLedger{wallets: make(map[string]models.Wallet, len(f.wallets)), txs: append([]models.Tx(nil), f.txs...)}
	for k, v := range f.wallets {
		l.wallets[k] = v
	}
	if err := fn(l); err != nil {
		return err
	}
	f.wallets, f.txs = l.wallets, l.txs
	return nil
}

type fakeLedger struct {
	wallets map[string]models.Wallet
	txs     []models.Tx
}

func (l *fakeLedger) LockWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	w, ok := l.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	return &w, nil
}

func (l *fakeLedger) Debit(ctx context.Context, userID, token string, amount decimal.Decimal) (decimal.Decimal, error) {
	w := l.wallets[userID]
	if w.USDT.LessThan(amount) {
		return decimal.Zero, repository.ErrInsufficientBalance
	}
	w.USDT = w.USDT.Sub(amount)
	l.wallets[userID] = w
	return w.USDT, nil
}

func (l *fakeLedger) InsertTx(ctx context.Context, t *models.Tx) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	l.txs = append(l.txs, *t)
	return nil
}

// fakeOTP accepts exactly one code.
type fakeOTP struct{ valid string }

func (f fakeOTP) Verify(code, secret string, at time.Time) bool {
	return code == f.valid
}
