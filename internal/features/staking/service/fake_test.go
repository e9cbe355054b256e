package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"qai-backend/internal/features/staking/models"
	"qai-backend/internal/features/staking/repository"
	walletmodels "qai-backend/internal/features/wallet/models"
	walletrepo "qai-backend/internal/features/wallet/repository"
)

type holdingKey struct{ user, pkg string }

type state struct {
	wallets  map[string]walletmodels.Wallet
	holdings map[holdingKey]int
	history  []models.HistoryEntry
	txs      []walletmodels.Tx
}

func (s state) clone() state {
	c := state{
		wallets:  make(map[string]walletmodels.Wallet, len(s.wallets)),
		holdings: make(map[holdingKey]int, len(s.holdings)),
		history:  append([]models.HistoryEntry(nil), s.history...),
		txs:      append([]walletmodels.Tx(nil), s.txs...),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.holdings {
		c.holdings[k] = v
	}
	return c
}

type fakeRepo struct {
	state
	packages  []models.Package
	listCalls int
	// failHistory makes InsertHistory fail inside the transaction.
	failHistory bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{state: state{
		wallets:  make(map[string]walletmodels.Wallet),
		holdings: make(map[holdingKey]int),
	}}
}

func (f *fakeRepo) addPackage(name, price string) models.Package {
	p := models.Package{ID: uuid.NewString(), Name: name, Price: decimal.RequireFromString(price), CreatedAt: time.Now()}
	f.packages = append(f.packages, p)
	return p
}

func (f *fakeRepo) ListPackages(ctx context.Context) ([]models.Package, error) {
	f.listCalls++
	out := append([]models.Package(nil), f.packages...)
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (f *fakeRepo) FindByPrice(ctx context.Context, price decimal.Decimal) (*models.Package, error) {
	for _, p := range f.packages {
		if p.Price.Equal(price) {
			return &p, nil
		}
	}
	return nil, repository.ErrPackageNotFound
}

func (f *fakeRepo) SearchPackages(ctx context.Context, q models.PackageQuery) ([]models.Package, int, error) {
	var matched []models.Package
	for _, p := range f.packages {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			matched = append(matched, p)
		}
	}
	start := (q.Page - 1) * q.Size
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+q.Size, len(matched))
	return matched[start:end], len(matched), nil
}

func (f *fakeRepo) CreatePackage(ctx context.Context, pkg *models.Package) error {
	pkg.ID = uuid.NewString()
	pkg.CreatedAt = time.Now()
	f.packages = append(f.packages, *pkg)
	return nil
}

func (f *fakeRepo) DeletePackage(ctx context.Context, id string) error {
	for i, p := range f.packages {
		if p.ID == id {
			f.packages = append(f.packages[:i], f.packages[i+1:]...)
			return nil
		}
	}
	return repository.ErrPackageNotFound
}

func (f *fakeRepo) History(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	for i := len(f.history) - 1; i >= 0 && len(out) < limit; i-- {
		if f.history[i].UserID == userID {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) WithinTx(ctx context.Context, fn func(tx repository.PurchaseTx) error) error {
	tx := &fakeTx{state: f.state.clone(), failHistory: f.failHistory}
	if err := fn(tx); err != nil {
		return err
	}
	f.state = tx.state
	return nil
}

type fakeTx struct {
	state
	failHistory bool
}

func (t *fakeTx) LockWallet(ctx context.Context, userID string) (*walletmodels.Wallet, error) {
	w, ok := t.wallets[userID]
	if !ok {
		return nil, walletrepo.ErrWalletNotFound
	}
	return &w, nil
}

func (t *fakeTx) Debit(ctx context.Context, userID, token string, amount decimal.Decimal) (decimal.Decimal, error) {
	w := t.wallets[userID]
	if w.USDT.LessThan(amount) {
		return decimal.Zero, walletrepo.ErrInsufficientBalance
	}
	w.USDT = w.USDT.Sub(amount)
	t.wallets[userID] = w
	return w.USDT, nil
}

func (t *fakeTx) InsertTx(ctx context.Context, tx *walletmodels.Tx) error {
	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now()
	t.txs = append(t.txs, *tx)
	return nil
}

func (t *fakeTx) AddHolding(ctx context.Context, userID, packageID string) error {
	t.holdings[holdingKey{userID, packageID}]++
	return nil
}

func (t *fakeTx) InsertHistory(ctx context.Context, e *models.HistoryEntry) error {
	if t.failHistory {
		return errors.New("connection reset")
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Date(2024, 3, 1, 9, 30, len(t.history), 0, time.UTC)
	t.history = append(t.history, *e)
	return nil
}
