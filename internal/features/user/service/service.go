package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/logger"
	"qai-backend/internal/common/metrics"
	"qai-backend/internal/common/retry"
	"qai-backend/internal/common/validation"
	treemodels "qai-backend/internal/features/tree/models"
	treerepo "qai-backend/internal/features/tree/repository"
	tree "qai-backend/internal/features/tree/service"
	"qai-backend/internal/features/user/models"
	"qai-backend/internal/features/user/repository"
)

// ReferralCodeChars excludes 0, 1, I and O.
const ReferralCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roleUser = "user"

// TreeStore is a pool-bound tree store used outside the signup transaction.
type TreeStore interface {
	treerepo.EdgeStore
	treerepo.TreeReader
}

type Options struct {
	ReferralGroups     int
	ReferralCodeLength int
	MaxAttempts        int
	BcryptCost         int
}

type userService struct {
	users   repository.UserRepository
	signups repository.SignupStore
	trees   TreeStore
	tokens  TokenIssuer
	metrics *metrics.Metrics

	referral treemodels.Kind
	sponsor  treemodels.Kind
	opts     Options
	newCode  func() (string, error)
}

func NewUserService(
	users repository.UserRepository,
	signups repository.SignupStore,
	trees TreeStore,
	tokens TokenIssuer,
	m *metrics.Metrics,
	opts Options,
) UserService {
	if opts.ReferralCodeLength < 8 {
		opts.ReferralCodeLength = 8
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ReferralGroups < 1 {
		opts.ReferralGroups = 2
	}
	s := &userService{
		users:    users,
		signups:  signups,
		trees:    trees,
		tokens:   tokens,
		metrics:  m,
		referral: treemodels.ReferralKind(opts.ReferralGroups),
		sponsor:  treemodels.SponsorKind(),
		opts:     opts,
	}
	s.newCode = func() (string, error) {
		return uniuri.NewLenChars(s.opts.ReferralCodeLength, []byte(ReferralCodeChars)), nil
	}
	return s
}

func (s *userService) Signup(ctx context.Context, in models.SignupInput) (*models.User, error) {
	user, err := s.signup(ctx, in)
	if err == nil {
		s.metrics.ObserveSignup(metrics.OutcomeSuccess, "")
		return user, nil
	}

	outcome := metrics.OutcomeRejected
	if appErr, ok := apperrors.AsAppError(err); !ok || appErr.IsInternal() {
		outcome = metrics.OutcomeFailed
	}
	s.metrics.ObserveSignup(outcome, string(apperrors.CodeOf(err, apperrors.ErrCodeUnknown)))
	return nil, err
}

func normalize(in *models.SignupInput) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Referrer = strings.TrimSpace(in.Referrer)
	in.Sponsor = strings.TrimSpace(in.Sponsor)
	in.CountryCode = strings.ToUpper(strings.TrimSpace(in.CountryCode))
}

// parents are the resolved referrer and sponsor of a validated signup.
type parents struct {
	referrer *models.User
	sponsor  *models.User
}

func (s *userService) validate(ctx context.Context, in models.SignupInput) (*parents, error) {
	if in.GroupNo != nil && *in.GroupNo <= 0 {
		return nil, ErrInvalidGroupNo
	}
	if in.Referrer == "" {
		return nil, ErrReferrerRequired
	}
	if in.Sponsor == "" {
		return nil, ErrSponsorRequired
	}

	fields := []struct {
		name  string
		check func(string) error
		value string
	}{
		{"username", validation.ValidateUsername, in.Username},
		{"email", validation.ValidateEmail, in.Email},
		{"password", validation.ValidatePassword, in.Password},
		{"name", validation.ValidateName, in.Name},
	}
	for _, f := range fields {
		if err := f.check(f.value); err != nil {
			return nil, apperrors.NewValidationError(f.name, err.Error())
		}
	}

	taken, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, apperrors.NewInternalError("check username", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("check email", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	if in.CountryCode != "" {
		if !validation.IsCountryCode(in.CountryCode) {
			return nil, ErrCountryCodeInvalid
		}
		found, err := s.users.CountryExists(ctx, in.CountryCode)
		if err != nil {
			return nil, apperrors.NewInternalError("check country", err)
		}
		if !found {
			return nil, ErrCountryNotFound
		}
	}

	referrer, err := s.findParent(ctx, in.Referrer, ErrReferrerNotFound)
	if err != nil {
		return nil, err
	}
	sponsor, err := s.findParent(ctx, in.Sponsor, ErrSponsorNotFound)
	if err != nil {
		return nil, err
	}
	return &parents{referrer: referrer, sponsor: sponsor}, nil
}

func (s *userService) findParent(ctx context.Context, q string, notFound error) (*models.User, error) {
	u, err := s.users.FindByUsernameOrReferralCode(ctx, q)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, apperrors.NewInternalError("resolve parent", err)
	}
	return u, nil
}

func (s *userService) signup(ctx context.Context, in models.SignupInput) (*models.User, error) {
	normalize(&in)
	p, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "signup failed")
	}

	var country *string
	if in.CountryCode != "" {
		country = &in.CountryCode
	}

	policy := retry.Policy[string]{
		Attempts: s.opts.MaxAttempts,
		Fresh:    s.newCode,
		Retryable: func(err error) bool {
			return errors.Is(err, repository.ErrReferralCodeTaken)
		},
		OnRetry: func(attempt int, err error) {
			s.metrics.ObserveReferralRetry()
			logger.Warn().Int("attempt", attempt).Str("username", in.Username).Msg("Referral code collision, retrying signup")
		},
	}
	user, err := retry.Do(ctx, policy, func(ctx context.Context, code string) (*models.User, error) {
		u := &models.User{
			ID:           uuid.NewString(),
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: string(hash),
			Name:         in.Name,
			CountryCode:  country,
			ReferralCode: code,
			ReferrerID:   &p.referrer.ID,
			SponsorID:    &p.sponsor.ID,
			Role:         roleUser,
		}
		if err := s.signups.WithinTx(ctx, func(tx repository.SignupTx) error {
			return s.placeNewUser(ctx, tx, u, in.GroupNo)
		}); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		return nil, mapSignupError(err)
	}

	if err := tree.EnsureParentGroupSummary(ctx, s.trees, s.trees, s.referral, user.ID); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to ensure referral group summary")
	}

	logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("referrer_id", p.referrer.ID).
		Str("sponsor_id", p.sponsor.ID).
		Msg("User signed up")
	return user, nil
}

// placeNewUser performs every write of a signup inside tx. The parents are
// locked first so the capacity and position reads below cannot interleave
// with a concurrent signup under the same parent.
func (s *userService) placeNewUser(ctx context.Context, tx repository.SignupTx, u *models.User, groupNo *int) error {
	if err := tx.LockUsers(ctx, *u.ReferrerID, *u.SponsorID); err != nil {
		return err
	}
	if err := tree.CheckCapacity(ctx, tx, s.sponsor, *u.SponsorID); err != nil {
		return err
	}

	if err := tx.CreateUser(ctx, u); err != nil {
		return err
	}
	if err := tx.CreateWallet(ctx, u.ID); err != nil {
		return err
	}
	if err := tx.CreateRewardSummary(ctx, u.ID); err != nil {
		return err
	}
	if err := tx.CreateReferralStats(ctx, u.ID); err != nil {
		return err
	}

	if _, err := tree.Place(ctx, tx, s.referral, *u.ReferrerID, u.ID, groupNo); err != nil {
		return err
	}
	if _, err := tree.Place(ctx, tx, s.sponsor, *u.SponsorID, u.ID, groupNo); err != nil {
		return err
	}
	return nil
}

func mapSignupError(err error) error {
	switch {
	case errors.Is(err, tree.ErrChildLimitReached), errors.Is(err, tree.ErrInvalidGroupNo):
		return err
	case errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, repository.ErrUniqueViolation),
		errors.Is(err, treerepo.ErrSlotTaken):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "duplicate value").WithStatus(http.StatusConflict)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, "signup failed")
	}
}

func (s *userService) Login(ctx context.Context, in models.LoginInput) (*models.LoginResult, error) {
	login := strings.ToLower(strings.TrimSpace(in.Login))
	if login == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.NewInternalError("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("issue token", err)
	}
	return &models.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      models.ResolvedUser{ID: user.ID, Username: user.Username, Role: user.Role},
	}, nil
}

func (s *userService) ResolveUser(ctx context.Context, q string) (*models.ResolvedUser, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.NewValidationError("q", "query cannot be empty")
	}
	user, err := s.users.FindByUsernameOrReferralCode(ctx, q)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.NewInternalError("resolve user", err)
	}
	return &models.ResolvedUser{ID: user.ID, Username: user.Username}, nil
}
