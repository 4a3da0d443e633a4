package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/vibast-solutions/ms-go-todo/app/database"
	"github.com/vibast-solutions/ms-go-todo/config"
)

const (
	findByCanonicalEmailQuery = `(?s)SELECT id, email, canonical_email, password_hash, activation_token, password_reset_token, created_at, updated_at FROM accounts WHERE canonical_email = \?`
	findAccountByIDQuery      = `(?s)SELECT id, email, canonical_email, password_hash, activation_token, password_reset_token, created_at, updated_at FROM accounts WHERE id = \?`
	insertAccountQuery        = `(?s)INSERT INTO accounts \(id, email, canonical_email, password_hash, activation_token, password_reset_token, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?\)`
	setActivationTokenQuery   = `(?s)UPDATE accounts SET activation_token = \?, updated_at = \? WHERE id = \?`
	setResetTokenQuery        = `(?s)UPDATE accounts SET password_reset_token = \?, updated_at = \? WHERE id = \?`
	consumeActivationQuery    = `(?s)UPDATE accounts SET\s+password_hash = \?,\s+activation_token = NULL,\s+updated_at = \?\s+WHERE id = \? AND activation_token = \?`
	consumeResetQuery         = `(?s)UPDATE accounts SET\s+password_hash = \?,\s+password_reset_token = NULL,\s+updated_at = \?\s+WHERE id = \? AND password_reset_token = \?`
)

var accountColumns = []string{
	"id",
	"email",
	"canonical_email",
	"password_hash",
	"activation_token",
	"password_reset_token",
	"created_at",
	"updated_at",
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			Secret:          "test-secret",
			Lifetime:        10 * 24 * time.Hour,
			AutoRenew:       true,
			RenewalThrottle: time.Hour,
			RevocationGrace: time.Minute,
		},
		Tokens: config.TokenConfig{
			ActivationTTL: 72 * time.Hour,
			ResetTTL:      24 * time.Hour,
		},
		Password: config.PasswordConfig{
			Policy: config.PasswordPolicy{MinLength: 1},
		},
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newSQLiteDB(t *testing.T) *sql.DB {
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
	return db
}

type sentEmail struct {
	kind  string
	to    string
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *recordingNotifier) SendActivation(ctx context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{kind: "activation", to: to, token: token})
	return n.err
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{kind: "password_reset", to: to, token: token})
	return n.err
}

func (n *recordingNotifier) Sent() []sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEmail(nil), n.sent...)
}

func syncRunner(task func()) {
	task()
}

func mysqlDuplicate() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'canonical_email'"}
}
