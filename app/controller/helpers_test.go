package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-todo/app/controller"
	"github.com/vibast-solutions/ms-go-todo/app/database"
	"github.com/vibast-solutions/ms-go-todo/app/middleware"
	"github.com/vibast-solutions/ms-go-todo/app/repository"
	"github.com/vibast-solutions/ms-go-todo/app/revocation"
	"github.com/vibast-solutions/ms-go-todo/app/service"
	"github.com/vibast-solutions/ms-go-todo/app/token"
	"github.com/vibast-solutions/ms-go-todo/config"
)

type capturedEmail struct {
	kind  string
	to    string
	token string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []capturedEmail
}

func (n *captureNotifier) SendActivation(_ context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, capturedEmail{kind: "activation", to: to, token: token})
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, capturedEmail{kind: "password_reset", to: to, token: token})
	return nil
}

func (n *captureNotifier) last(t *testing.T) capturedEmail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	return n.sent[len(n.sent)-1]
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type testServer struct {
	echo     *echo.Echo
	notifier *captureNotifier
	now      time.Time
	mu       sync.Mutex
}

func (s *testServer) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *testServer) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.Join(t.TempDir(), "todo.db"))
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(ctx, db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{
		Session: config.SessionConfig{
			Secret:          "test-secret",
			Lifetime:        10 * 24 * time.Hour,
			AutoRenew:       true,
			RenewalThrottle: time.Hour,
			RevocationGrace: time.Minute,
		},
		Tokens: config.TokenConfig{ActivationTTL: 72 * time.Hour, ResetTTL: 24 * time.Hour},
		Cookie: config.CookieConfig{Name: "token", HTTPOnly: true, SameSite: http.SameSiteLaxMode},
		Password: config.PasswordConfig{
			Policy: config.PasswordPolicy{MinLength: 2},
		},
	}

	s := &testServer{
		notifier: &captureNotifier{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	codec := token.NewCodec(cfg.Session.Secret, token.WithClock(s.clock))
	accounts := repository.NewAccountRepository(db)
	sessions := service.NewSessionService(codec, revocation.NewMemoryRegistry(cfg.Session.RevocationGrace), cfg.Session, service.WithSessionClock(s.clock))
	secretTokens := service.NewSecretTokenService(codec, accounts, cfg, service.WithSecretTokenClock(s.clock))
	authService := service.NewAuthService(accounts, sessions, secretTokens, s.notifier, cfg,
		service.WithAsyncRunner(func(task func()) { task() }),
		service.WithAuthClock(s.clock),
	)
	todoService := service.NewTodoService(db, repository.NewTodoRepository(db))

	s.echo = echo.New()
	controller.RegisterRoutes(
		s.echo,
		controller.NewAuthController(authService, todoService, cfg.Cookie),
		controller.NewTodoController(todoService),
		middleware.NewAuthMiddleware(sessions, authService, cfg.Cookie),
	)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, session string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: session})
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	t.Fatalf("expected a session cookie in the response")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response failed: %v (body %s)", err, rec.Body.String())
	}
}

func expectCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rec.Code, rec.Body.String())
	}
	if code == "" {
		return
	}
	var body struct {
		Code string `json:"code"`
	}
	decode(t, rec, &body)
	if body.Code != code {
		t.Fatalf("expected code %s, got %s", code, body.Code)
	}
}
