package service

import (
	"context"
	"errors"
	"time"

	treemodels "qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/tree/repository/memory"
	"qai-backend/internal/features/user/models"
	"qai-backend/internal/features/user/repository"
)

// fakeDB is an in-memory user and tree store. WithinTx works on a copy and
// swaps it in only on success, so a failed signup leaves no rows behind.
type fakeDB struct {
	*memory.Store

	users     map[string]models.User
	countries map[string]bool
	wallets   map[string]bool
	summaries map[string]bool
	stats     map[string]bool

	// takenCodes collide on CreateUser as if another user already held them.
	takenCodes map[string]bool
	// failAfter, when set, fails the named write.
	failAfter string
	failErr   error
	locks     [][]string
	// calls records transactional reads and writes in order.
	calls []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		Store:      memory.New(),
		users:      make(map[string]models.User),
		countries:  map[string]bool{"KR": true, "US": true},
		wallets:    make(map[string]bool),
		summaries:  make(map[string]bool),
		stats:      make(map[string]bool),
		takenCodes: make(map[string]bool),
	}
}

// seed adds an existing user.
func (f *fakeDB) seed(id, username, code string) {
	f.users[id] = models.User{ID: id, Username: username, Email: username + "@example.com",
		ReferralCode: code, Role: "user", CreatedAt: time.Now()}
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeDB) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeDB) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeDB) FindByUsernameOrReferralCode(ctx context.Context, q string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == q || u.ReferralCode == q {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) EmailExists(ctx context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) CountryExists(ctx context.Context, code string) (bool, error) {
	return f.countries[code], nil
}

func (f *fakeDB) WithinTx(ctx context.Context, fn func(tx repository.SignupTx) error) error {
	tx := &fakeTx{
		Store:     f.Store.Clone(),
		db:        f,
		users:     make(map[string]models.User, len(f.users)),
		wallets:   copySet(f.wallets),
		summaries: copySet(f.summaries),
		stats:     copySet(f.stats),
	}
	for k, v := range f.users {
		tx.users[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	f.Store = tx.Store
	f.users = tx.users
	f.wallets = tx.wallets
	f.summaries = tx.summaries
	f.stats = tx.stats
	return nil
}

type fakeTx struct {
	*memory.Store
	db *fakeDB

	users     map[string]models.User
	wallets   map[string]bool
	summaries map[string]bool
	stats     map[string]bool
}

func (t *fakeTx) fail(step string) error {
	if t.db.failAfter == step {
		if t.db.failErr != nil {
			return t.db.failErr
		}
		return errors.New(step + " failed")
	}
	return nil
}

func (t *fakeTx) record(call string) {
	t.db.calls = append(t.db.calls, call)
}

func (t *fakeTx) LockUsers(ctx context.Context, ids ...string) error {
	t.record("lock")
	t.db.locks = append(t.db.locks, ids)
	return nil
}

func (t *fakeTx) CountChildren(ctx context.Context, kind treemodels.Kind, parentID string) (int, error) {
	t.record("count-children:" + kind.Name)
	return t.Store.CountChildren(ctx, kind, parentID)
}

func (t *fakeTx) GroupCounts(ctx context.Context, kind treemodels.Kind, parentID string) (map[int]int, error) {
	t.record("group-counts:" + kind.Name)
	return t.Store.GroupCounts(ctx, kind, parentID)
}

func (t *fakeTx) MaxPosition(ctx context.Context, kind treemodels.Kind, parentID string, groupNo int) (int, error) {
	t.record("max-position:" + kind.Name)
	return t.Store.MaxPosition(ctx, kind, parentID, groupNo)
}

func (t *fakeTx) CreateUser(ctx context.Context, u *models.User) error {
	if t.db.takenCodes[u.ReferralCode] {
		return repository.ErrReferralCodeTaken
	}
	for _, existing := range t.users {
		switch {
		case existing.ReferralCode == u.ReferralCode:
			return repository.ErrReferralCodeTaken
		case existing.Username == u.Username:
			return repository.ErrUsernameTaken
		case existing.Email == u.Email:
			return repository.ErrEmailTaken
		}
	}
	if err := t.fail("user"); err != nil {
		return err
	}
	t.record("create-user")
	u.CreatedAt = time.Now()
	t.users[u.ID] = *u
	return nil
}

func (t *fakeTx) CreateWallet(ctx context.Context, userID string) error {
	t.wallets[userID] = true
	return t.fail("wallet")
}

func (t *fakeTx) CreateRewardSummary(ctx context.Context, userID string) error {
	t.summaries[userID] = true
	return t.fail("summary")
}

func (t *fakeTx) CreateReferralStats(ctx context.Context, userID string) error {
	t.stats[userID] = true
	return t.fail("stats")
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID, username, role string) (string, time.Time, error) {
	return "token-" + userID, time.Unix(1700000000, 0), nil
}
