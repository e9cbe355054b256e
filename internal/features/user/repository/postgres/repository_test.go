package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qai-backend/internal/features/user/models"
	"qai-backend/internal/features/user/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userRowColumns = []string{"id", "username", "email", "password_hash", "name", "country_code",
	"referral_code", "referrer_id", "sponsor_id", "role", "created_at"}

func TestFindByUsernameOrReferralCode(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = lower($1) OR referral_code = upper($1)`)).
		WithArgs("K7QH2M9X").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "alice", "a@x.io", "hash", "Alice", "KR", "K7QH2M9X", nil, nil, "user", created))

	u, err := repo.FindByUsernameOrReferralCode(context.Background(), "K7QH2M9X")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	require.NotNil(t, u.CountryCode)
	assert.Equal(t, "KR", *u.CountryCode)
	assert.Nil(t, u.ReferrerID)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestExistenceChecks(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("alice").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM countries WHERE code = $1)`)).
		WithArgs("ZZ").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := repo.UsernameExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, taken)

	found, err := repo.CountryExists(context.Background(), "ZZ")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_MapsUniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"users_referral_code_key", repository.ErrReferralCodeTaken},
		{"users_username_key", repository.ErrUsernameTaken},
		{"users_email_key", repository.ErrEmailTaken},
		{"users_pkey", repository.ErrUniqueViolation},
	}
	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(`INSERT INTO users`).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})

			err := newSignupTx(db).CreateUser(context.Background(), &models.User{ID: "u1", Role: "user"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateUser_OtherErrorIsWrapped(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

	err := newSignupTx(db).CreateUser(context.Background(), &models.User{ID: "u1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestWithinTx_CommitsAllWrites(t *testing.T) {
	db, mock := newMock(t)
	store := NewSignupStore(db)
	created := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1").AddRow("p2"))
	mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec(`INSERT INTO user_wallets`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_reward_summaries`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_referral_stats`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{ID: "u1", Role: "user"}
	err := store.WithinTx(context.Background(), func(tx repository.SignupTx) error {
		ctx := context.Background()
		if err := tx.LockUsers(ctx, "p1", "p2"); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := tx.CreateWallet(ctx, user.ID); err != nil {
			return err
		}
		if err := tx.CreateRewardSummary(ctx, user.ID); err != nil {
			return err
		}
		return tx.CreateReferralStats(ctx, user.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, created, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewSignupStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_referral_code_key"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.SignupTx) error {
		return tx.CreateUser(context.Background(), &models.User{ID: "u1"})
	})
	assert.ErrorIs(t, err, repository.ErrReferralCodeTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
