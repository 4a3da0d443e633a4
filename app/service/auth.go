package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibast-solutions/ms-go-todo/app/dto"
	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/repository"
	"github.com/vibast-solutions/ms-go-todo/app/token"
	"github.com/vibast-solutions/ms-go-todo/app/types"
	"github.com/vibast-solutions/ms-go-todo/config"
)

// dummyHash is compared against when the email is unknown so both login failures cost one bcrypt round.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)

type accountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
}

// Notifier delivers account emails. Implementations may block on I/O.
type Notifier interface {
	SendActivation(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

type AuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*entity.Account, error)
	Login(ctx context.Context, req *types.LoginRequest) (*dto.LoginResult, error)
	Logout(raw string, claims *token.Claims)
	Activate(ctx context.Context, req *types.PasswordSettingRequest) (*entity.Account, error)
	RequestPasswordReset(ctx context.Context, req *types.EmailRequest) error
	ResetPassword(ctx context.Context, req *types.PasswordSettingRequest) (*entity.Account, error)
	ResendActivation(ctx context.Context, req *types.EmailRequest) error
	// CreateAccount is the administrative path used by the CLI; it skips request validation.
	CreateAccount(ctx context.Context, email, password string) (*entity.Account, error)
	FindAccount(ctx context.Context, id string) (*entity.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
}

type AsyncRunner func(task func())

type AuthServiceOption func(*authService)

func WithAsyncRunner(runner AsyncRunner) AuthServiceOption {
	return func(s *authService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithAuthClock(now func() time.Time) AuthServiceOption {
	return func(s *authService) {
		s.now = now
	}
}

type authService struct {
	accounts     accountRepository
	sessions     SessionService
	secretTokens SecretTokenService
	notifier     Notifier
	cfg          *config.Config
	asyncRunner  AsyncRunner
	now          func() time.Time
}

func NewAuthService(
	accounts accountRepository,
	sessions SessionService,
	secretTokens SecretTokenService,
	notifier Notifier,
	cfg *config.Config,
	opts ...AuthServiceOption,
) AuthService {
	s := &authService{
		accounts:     accounts,
		sessions:     sessions,
		secretTokens: secretTokens,
		notifier:     notifier,
		cfg:          cfg,
		asyncRunner: func(task func()) {
			go task()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authService) Register(ctx context.Context, req *types.RegisterRequest) (*entity.Account, error) {
	return s.CreateAccount(ctx, req.Email, req.Password)
}

func (s *authService) CreateAccount(ctx context.Context, email, password string) (*entity.Account, error) {
	canonicalEmail := CanonicalizeEmail(email)

	existing, err := s.accounts.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	now := s.now().UTC()
	account := &entity.Account{
		ID:             uuid.NewString(),
		Email:          email,
		CanonicalEmail: canonicalEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var activationToken string
	if password != "" {
		if err = s.cfg.Password.Policy.Validate(password); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = sql.NullString{String: string(hash), Valid: true}
	} else {
		activationToken, err = s.secretTokens.PrepareActivation(account)
		if err != nil {
			return nil, err
		}
	}

	if err = s.accounts.Create(ctx, account); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if activationToken != "" {
		s.deliver(account, "activation", func(ctx context.Context) error {
			return s.notifier.SendActivation(ctx, account.Email, activationToken)
		})
	}

	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,
		"activated":  account.IsActivated(),
	}).Info("Account registered")

	return account, nil
}

func (s *authService) Login(ctx context.Context, req *types.LoginRequest) (*dto.LoginResult, error) {
	account, err := s.accounts.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, ErrInvalidCredentials
	}

	if !account.IsActivated() {
		return nil, ErrAccountNotActivated
	}

	if err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash.String), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	raw, claims, err := s.sessions.Issue(account.ID)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResult{
		Account:   account,
		Token:     raw,
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (s *authService) Logout(raw string, claims *token.Claims) {
	s.sessions.Revoke(raw, claims)
}

func (s *authService) Activate(ctx context.Context, req *types.PasswordSettingRequest) (*entity.Account, error) {
	return s.secretTokens.ConsumeActivation(ctx, req.Token, req.Password)
}

func (s *authService) ResetPassword(ctx context.Context, req *types.PasswordSettingRequest) (*entity.Account, error) {
	return s.secretTokens.ConsumeReset(ctx, req.Token, req.Password)
}

// RequestPasswordReset succeeds silently for unknown emails. Accounts still awaiting activation get a
// fresh activation email instead, since a reset would leave them unactivated.
func (s *authService) RequestPasswordReset(ctx context.Context, req *types.EmailRequest) error {
	account, err := s.accounts.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if account == nil {
		logrus.Debug("Password reset requested for unknown email")
		return nil
	}

	if !account.IsActivated() {
		return s.reissueActivation(ctx, account)
	}

	resetToken, err := s.secretTokens.IssueReset(ctx, account)
	if err != nil {
		return err
	}
	s.deliver(account, "password_reset", func(ctx context.Context) error {
		return s.notifier.SendPasswordReset(ctx, account.Email, resetToken)
	})
	return nil
}

func (s *authService) ResendActivation(ctx context.Context, req *types.EmailRequest) error {
	account, err := s.accounts.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if account == nil || account.IsActivated() {
		return nil
	}
	return s.reissueActivation(ctx, account)
}

func (s *authService) FindAccount(ctx context.Context, id string) (*entity.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *authService) FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error) {
	account, err := s.accounts.FindByCanonicalEmail(ctx, CanonicalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *authService) reissueActivation(ctx context.Context, account *entity.Account) error {
	activationToken, err := s.secretTokens.IssueActivation(ctx, account)
	if err != nil {
		return err
	}
	s.deliver(account, "activation", func(ctx context.Context) error {
		return s.notifier.SendActivation(ctx, account.Email, activationToken)
	})
	return nil
}

// deliver sends an email without blocking the request. Failures are logged and never undo the token.
func (s *authService) deliver(account *entity.Account, kind string, send func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	accountID := account.ID
	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := send(sendCtx); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"account_id": accountID,
				"email_kind": kind,
			}).Error("Failed to send account email")
		}
	})
}
