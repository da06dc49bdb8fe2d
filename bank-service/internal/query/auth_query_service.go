package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	ErrTooManyAttempts    = apperr.New(apperr.KindRateLimited, "Too many login attempts, try again later")
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(subject string, role auth.Role) (string, time.Time, error)
}

// LoginLimiter throttles login attempts per subject.
type LoginLimiter interface {
	Allow(ctx context.Context, scope, subject string) (bool, time.Duration, error)
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	Role        auth.Role `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthQueryService handles user and admin login. There's no CommandService
// for auth because logging in doesn't mutate application state.
type AuthQueryService struct {
	store   repository.Store
	tokens  TokenIssuer
	limiter LoginLimiter
	logger  *zap.Logger
}

func NewAuthQueryService(store repository.Store, tokens TokenIssuer, limiter LoginLimiter, logger *zap.Logger) *AuthQueryService {
	return &AuthQueryService{store: store, tokens: tokens, limiter: limiter, logger: logger}
}

// Login authenticates a customer by phone and password.
func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (*LoginResult, error) {
	phone := strings.TrimSpace(cmd.Phone)
	if err := s.throttle(ctx, "login", phone); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccountByPhone(ctx, phone)
	if errors.Is(err, repository.ErrAccountNotFound) {
		burnPasswordCheck(cmd.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(cmd.Password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(account.ID, auth.RoleUser)
}

// AdminLogin authenticates an admin by username and password.
func (s *AuthQueryService) AdminLogin(ctx context.Context, cmd cqrs.AdminLoginCommand) (*LoginResult, error) {
	username := strings.TrimSpace(cmd.Username)
	if err := s.throttle(ctx, "admin_login", username); err != nil {
		return nil, err
	}

	admin, err := s.store.GetAdminByUsername(ctx, username)
	if errors.Is(err, repository.ErrAdminNotFound) {
		burnPasswordCheck(cmd.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(cmd.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(admin.ID, auth.RoleAdmin)
}

func (s *AuthQueryService) issue(subject string, role auth.Role) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(subject, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{AccessToken: token, Role: role, ExpiresAt: expiresAt}, nil
}

// throttle fails open when the limiter itself is unavailable.
func (s *AuthQueryService) throttle(ctx context.Context, scope, subject string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, retryAfter, err := s.limiter.Allow(ctx, scope, subject)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.String("scope", scope), zap.Error(err))
		return nil
	}
	if !allowed {
		s.logger.Info("login throttled", zap.String("scope", scope), zap.Duration("retry_after", retryAfter))
		return ErrTooManyAttempts
	}
	return nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends a bcrypt comparison so unknown logins take as
// long as wrong passwords.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("not-a-real-password")
	})
	utils.CheckPassword(password, dummyHash)
}
