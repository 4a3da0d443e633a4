package cmd

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-todo/app/database"
	"github.com/vibast-solutions/ms-go-todo/app/mail"
	"github.com/vibast-solutions/ms-go-todo/app/repository"
	"github.com/vibast-solutions/ms-go-todo/app/revocation"
	"github.com/vibast-solutions/ms-go-todo/app/service"
	"github.com/vibast-solutions/ms-go-todo/app/token"
	"github.com/vibast-solutions/ms-go-todo/config"
)

type application struct {
	cfg          *config.Config
	db           *sql.DB
	codec        *token.Codec
	registry     *revocation.MemoryRegistry
	sessions     service.SessionService
	secretTokens service.SecretTokenService
	auth         service.AuthService
	todos        service.TodoService
	internalAuth service.InternalAuthService
}

func newApplication(ctx context.Context, cfg *config.Config, authOpts ...service.AuthServiceOption) (*application, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	sender, err := mail.NewSender(cfg.Mail)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	accounts := repository.NewAccountRepository(db)
	codec := token.NewCodec(cfg.Session.Secret)
	registry := revocation.NewMemoryRegistry(cfg.Session.RevocationGrace)
	sessions := service.NewSessionService(codec, registry, cfg.Session)
	secretTokens := service.NewSecretTokenService(codec, accounts, cfg)

	return &application{
		cfg:          cfg,
		db:           db,
		codec:        codec,
		registry:     registry,
		sessions:     sessions,
		secretTokens: secretTokens,
		auth:         service.NewAuthService(accounts, sessions, secretTokens, mail.NewNotifier(sender, cfg.Mail), cfg, authOpts...),
		todos:        service.NewTodoService(db, repository.NewTodoRepository(db)),
		internalAuth: service.NewInternalAuthService(repository.NewInternalAPIKeyRepository(db)),
	}, nil
}

func (a *application) Close() error {
	return a.db.Close()
}

// syncDelivery makes email sending block so short-lived commands do not exit before the mail is out.
func syncDelivery(task func()) {
	task()
}
