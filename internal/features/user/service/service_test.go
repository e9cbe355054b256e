package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/metrics"
	treemodels "qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/user/models"
	"qai-backend/internal/features/user/repository"
)

func intPtr(v int) *int { return &v }

type fixture struct {
	db      *fakeDB
	svc     *userService
	metrics *metrics.Metrics
	codes   []string
}

// newFixture seeds alice (referral depth 1 under root) and bob (sponsor depth 2).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := newFakeDB()
	db.seed("root", "root", "ROOTROOT")
	db.seed("alice", "alice", "ALICE234")
	db.seed("bob", "bob", "BOBBOB23")
	db.seed("mid", "mid", "MIDMID23")

	require.NoError(t, db.InsertEdge(ctx, treemodels.ReferralKind(2),
		&treemodels.Edge{ParentID: "root", ChildID: "alice", GroupNo: 1, Position: 1, Depth: 1}))
	require.NoError(t, db.InsertEdge(ctx, treemodels.SponsorKind(),
		&treemodels.Edge{ParentID: "root", ChildID: "mid", GroupNo: 1, Position: 1, Depth: 1}))
	require.NoError(t, db.InsertEdge(ctx, treemodels.SponsorKind(),
		&treemodels.Edge{ParentID: "mid", ChildID: "bob", GroupNo: 1, Position: 1, Depth: 2}))

	m := metrics.New()
	svc := NewUserService(db, db, db, fakeTokens{}, m, Options{BcryptCost: bcrypt.MinCost}).(*userService)
	f := &fixture{db: db, svc: svc, metrics: m}
	generated := 0
	svc.newCode = func() (string, error) {
		if len(f.codes) == 0 {
			generated++
			return fmt.Sprintf("GEN%05d", generated), nil
		}
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code, nil
	}
	return f
}

func validInput() models.SignupInput {
	return models.SignupInput{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "Secret#123",
		Name:     "Carol",
		Referrer: "alice",
		Sponsor:  "bob",
	}
}

func TestSignup_PlacesUserInBothTrees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.codes = []string{"CAROL234"}

	in := validInput()
	in.Username = "  Carol "
	in.Email = "CAROL@Example.com"
	in.CountryCode = "kr"

	user, err := f.svc.Signup(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, "CAROL234", user.ReferralCode)
	require.NotNil(t, user.CountryCode)
	assert.Equal(t, "KR", *user.CountryCode)
	assert.Equal(t, "alice", *user.ReferrerID)
	assert.Equal(t, "bob", *user.SponsorID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secret#123")))

	ref, err := f.db.EdgeOf(ctx, treemodels.ReferralKind(2), user.ID)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "alice", ref.ParentID)
	assert.Equal(t, 2, ref.Depth, "alice sits at depth 1")
	assert.Equal(t, 1, ref.GroupNo)
	assert.Equal(t, 1, ref.Position)

	sp, err := f.db.EdgeOf(ctx, treemodels.SponsorKind(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Equal(t, "bob", sp.ParentID)
	assert.Equal(t, 3, sp.Depth, "bob sits at depth 2")

	n, ok := f.db.Summary(treemodels.ReferralKind(2), "alice", 1)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	assert.True(t, f.db.wallets[user.ID])
	assert.True(t, f.db.summaries[user.ID])
	assert.True(t, f.db.stats[user.ID])
	assert.Equal(t, [][]string{{"alice", "bob"}}, f.db.locks)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Signups.WithLabelValues(metrics.OutcomeSuccess, "")))
}

func TestSignup_LocksParentsBeforeAggregateReads(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), validInput())
	require.NoError(t, err)

	calls := f.db.calls
	require.NotEmpty(t, calls)
	assert.Equal(t, "lock", calls[0])

	firstRead := -1
	for i, call := range calls {
		if strings.HasPrefix(call, "count-children:") || strings.HasPrefix(call, "group-counts:") ||
			strings.HasPrefix(call, "max-position:") {
			firstRead = i
			break
		}
	}
	require.Positive(t, firstRead, "placement reads sibling aggregates")
	assert.Equal(t, "count-children:"+treemodels.SponsorKind().Name, calls[firstRead], "sponsor cap is checked first")
	assert.Less(t, firstRead, slices.Index(calls, "create-user"), "cap check happens before the user row is written")
}

func TestSignup_ResolvesParentsByReferralCode(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Referrer = "ALICE234"
	in.Sponsor = "BOBBOB23"

	user, err := f.svc.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "alice", *user.ReferrerID)
	assert.Equal(t, "bob", *user.SponsorID)
}

func TestSignup_DefaultGroupBalancesReferralTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var groups []int
	for i, name := range []string{"carol", "dave", "erin"} {
		in := validInput()
		in.Username = name
		in.Email = name + "@example.com"
		if i == 2 {
			in.Sponsor = "alice"
		}
		f.codes = []string{"CODE000" + string(rune('A'+i))}
		user, err := f.svc.Signup(ctx, in)
		require.NoError(t, err)
		e, err := f.db.EdgeOf(ctx, treemodels.ReferralKind(2), user.ID)
		require.NoError(t, err)
		groups = append(groups, e.GroupNo)
	}
	assert.Equal(t, []int{1, 2, 1}, groups)
}

func TestSignup_RejectionsBeforeTransaction(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(in *models.SignupInput)
		code   apperrors.ErrorCode
		status int
	}{
		{"zero group", func(in *models.SignupInput) { in.GroupNo = intPtr(0) }, apperrors.ErrCodeInvalidRequestedGroupNo, http.StatusBadRequest},
		{"missing referrer", func(in *models.SignupInput) { in.Referrer = " " }, apperrors.ErrCodeReferrerRequired, http.StatusBadRequest},
		{"missing sponsor", func(in *models.SignupInput) { in.Sponsor = "" }, apperrors.ErrCodeSponsorRequired, http.StatusBadRequest},
		{"short username", func(in *models.SignupInput) { in.Username = "abc" }, apperrors.ErrCodeValidation, http.StatusBadRequest},
		{"weak password", func(in *models.SignupInput) { in.Password = "password" }, apperrors.ErrCodeValidation, http.StatusBadRequest},
		{"bad email", func(in *models.SignupInput) { in.Email = "carol@example" }, apperrors.ErrCodeValidation, http.StatusBadRequest},
		{"username taken", func(in *models.SignupInput) { in.Username = "ALICE" }, apperrors.ErrCodeUsernameTaken, http.StatusConflict},
		{"email taken", func(in *models.SignupInput) { in.Email = "bob@example.com" }, apperrors.ErrCodeEmailTaken, http.StatusConflict},
		{"country malformed", func(in *models.SignupInput) { in.CountryCode = "K1" }, apperrors.ErrCodeCountryCodeInvalid, http.StatusBadRequest},
		{"country unknown", func(in *models.SignupInput) { in.CountryCode = "ZZ" }, apperrors.ErrCodeCountryNotFound, http.StatusBadRequest},
		{"referrer unknown", func(in *models.SignupInput) { in.Referrer = "nobody" }, apperrors.ErrCodeReferrerNotFound, http.StatusNotFound},
		{"sponsor unknown", func(in *models.SignupInput) { in.Sponsor = "nobody" }, apperrors.ErrCodeSponsorNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tc.mutate(&in)

			_, err := f.svc.Signup(context.Background(), in)
			require.Error(t, err)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.status, appErr.HTTPStatus())
			assert.Len(t, f.db.users, 4, "no user is written")
			assert.Empty(t, f.db.locks, "no transaction is opened")
		})
	}
}

func TestSignup_SponsorChildLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "dave"} {
		in := validInput()
		in.Username, in.Email = name, name+"@example.com"
		f.codes = []string{name[:4] + "2345"}
		_, err := f.svc.Signup(ctx, in)
		require.NoError(t, err)
	}

	in := validInput()
	in.Username, in.Email = "erin", "erin@example.com"
	_, err := f.svc.Signup(ctx, in)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeSponsorChildLimit))
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(apperrors.ErrCodeSponsorChildLimit))

	assert.Len(t, f.db.users, 6)
	n, err := f.db.CountChildren(ctx, treemodels.SponsorKind(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSignup_IsAtomic(t *testing.T) {
	for _, step := range []string{"user", "wallet", "summary", "stats"} {
		t.Run(step, func(t *testing.T) {
			f := newFixture(t)
			f.db.failAfter = step

			_, err := f.svc.Signup(context.Background(), validInput())
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnknown))

			assert.Len(t, f.db.users, 4)
			assert.Empty(t, f.db.wallets)
			assert.Empty(t, f.db.summaries)
			assert.Empty(t, f.db.stats)
			assert.Len(t, f.db.Edges(treemodels.ReferralKind(2)), 1)
			assert.Len(t, f.db.Edges(treemodels.SponsorKind()), 2)
		})
	}
}

func TestSignup_SponsorPlacementFailureRollsBackReferralEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := validInput()
	first.GroupNo = intPtr(1)
	_, err := f.svc.Signup(ctx, first)
	require.NoError(t, err)

	// referral group 1 is unbounded, so the referral edge is written before
	// bob's occupied sponsor leg 1 refuses the request
	in := validInput()
	in.Username, in.Email = "dave", "dave@example.com"
	in.GroupNo = intPtr(1)
	_, err = f.svc.Signup(ctx, in)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidRequestedGroupNo, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())

	assert.Len(t, f.db.users, 5)
	assert.Len(t, f.db.Edges(treemodels.ReferralKind(2)), 2)
	assert.Len(t, f.db.wallets, 1)
}

func TestSignup_RetriesReferralCodeCollision(t *testing.T) {
	f := newFixture(t)
	f.codes = []string{"ALICE234", "FRESH234"}

	user, err := f.svc.Signup(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "FRESH234", user.ReferralCode)
	assert.Len(t, f.db.users, 5)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReferralCodeRetries))
}

func TestSignup_GivesUpAfterThreeCollisions(t *testing.T) {
	f := newFixture(t)
	f.db.takenCodes = map[string]bool{"AAAAAAAA": true, "BBBBBBBB": true, "CCCCCCCC": true}
	f.codes = []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC", "DDDDDDDD"}

	_, err := f.svc.Signup(context.Background(), validInput())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnknown, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus())
	assert.Len(t, f.db.users, 4)
	assert.Equal(t, []string{"DDDDDDDD"}, f.codes, "exactly three codes were tried")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Signups.WithLabelValues(metrics.OutcomeFailed, string(apperrors.ErrCodeUnknown))))
}

func TestMapSignupError(t *testing.T) {
	err := mapSignupError(errors.New("boom"))
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnknown))

	f := newFixture(t)
	f.db.failAfter = "user"
	f.db.failErr = repository.ErrUsernameTaken
	_, err = f.svc.Signup(context.Background(), validInput())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.codes = []string{"CAROL234"}
	_, err := f.svc.Signup(ctx, validInput())
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, models.LoginInput{Login: "Carol", Password: "Secret#123"})
	require.NoError(t, err)
	assert.Equal(t, "carol", res.User.Username)
	assert.NotEmpty(t, res.Token)

	res, err = f.svc.Login(ctx, models.LoginInput{Login: "carol@example.com", Password: "Secret#123"})
	require.NoError(t, err)
	assert.Equal(t, "user", res.User.Role)

	_, err = f.svc.Login(ctx, models.LoginInput{Login: "carol", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, models.LoginInput{Login: "nobody", Password: "Secret#123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.ResolveUser(ctx, "BOBBOB23")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	_, err = f.svc.ResolveUser(ctx, "ghost")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))

	_, err = f.svc.ResolveUser(ctx, "  ")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
}
