package controller_test

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

type accountBody struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	IsActivated bool   `json:"isActivated"`
	Todos       []struct {
		ID    string `json:"id"`
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	} `json:"todos"`
}

func registerActivated(t *testing.T, s *testServer, email, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": email, "password": password}, "")
	expectCode(t, rec, http.StatusCreated, "")

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	expectCode(t, rec, http.StatusOK, "")
	return sessionCookie(t, rec).Value
}

func TestRegisterWithoutPasswordThenActivate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "a@x.com"}, "")
	expectCode(t, rec, http.StatusCreated, "")
	var registered accountBody
	decode(t, rec, &registered)
	if registered.IsActivated || registered.Email != "a@x.com" {
		t.Fatalf("unexpected account: %+v", registered)
	}
	if strings.Contains(rec.Body.String(), "activation") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaked secrets: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "anything"}, "")
	expectCode(t, rec, http.StatusForbidden, "USER_NOT_ACTIVATED")

	activation := s.notifier.last(t)
	if activation.kind != "activation" || activation.to != "a@x.com" {
		t.Fatalf("unexpected email: %+v", activation)
	}

	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": activation.token, "password": "p1"}, "")
	expectCode(t, rec, http.StatusOK, "")
	var activated accountBody
	decode(t, rec, &activated)
	if !activated.IsActivated || activated.ID != registered.ID {
		t.Fatalf("expected activated account, got %+v", activated)
	}

	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": activation.token, "password": "p2"}, "")
	expectCode(t, rec, http.StatusForbidden, "ACTIVATION_TOKEN_EXPIRED_OR_INVALID")

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "p1"}, "")
	expectCode(t, rec, http.StatusOK, "")
}

func TestPasswordsBeyondBcryptLimitAreRejected(t *testing.T) {
	s := newTestServer(t)
	tooLong := strings.Repeat("p", 73)

	rec := s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "long@x.com", "password": tooLong}, "")
	expectCode(t, rec, http.StatusBadRequest, "WEAK_PASSWORD")

	rec = s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "long@x.com"}, "")
	expectCode(t, rec, http.StatusCreated, "")
	activation := s.notifier.last(t)

	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": activation.token, "password": tooLong}, "")
	expectCode(t, rec, http.StatusBadRequest, "WEAK_PASSWORD")

	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": activation.token, "password": strings.Repeat("p", 72)}, "")
	expectCode(t, rec, http.StatusOK, "")

	rec = s.do(t, http.MethodPost, "/auth/request-password-reset", map[string]string{"email": "long@x.com"}, "")
	expectCode(t, rec, http.StatusNoContent, "")
	reset := s.notifier.last(t)

	rec = s.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": reset.token, "password": tooLong}, "")
	expectCode(t, rec, http.StatusBadRequest, "WEAK_PASSWORD")
}

func TestLoginThenCurrentUser(t *testing.T) {
	s := newTestServer(t)
	session := registerActivated(t, s, "b@x.com", "secret")

	rec := s.do(t, http.MethodGet, "/auth/user", nil, session)
	expectCode(t, rec, http.StatusOK, "")
	var account accountBody
	decode(t, rec, &account)
	if account.Email != "b@x.com" || !account.IsActivated {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestLoginRejectsBadCredentialsWithOneCode(t *testing.T) {
	s := newTestServer(t)
	registerActivated(t, s, "c@x.com", "secret")

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "c@x.com", "password": "wrong"}, "")
	expectCode(t, rec, http.StatusForbidden, "INCORRECT_EMAIL_OR_PASSWORD")

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "nobody@x.com", "password": "secret"}, "")
	expectCode(t, rec, http.StatusForbidden, "INCORRECT_EMAIL_OR_PASSWORD")
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "not-an-email"}, "")
	expectCode(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")

	rec = s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "d@x.com", "password": "x"}, "")
	expectCode(t, rec, http.StatusBadRequest, "WEAK_PASSWORD")

	rec = s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "d@x.com", "password": "xy"}, "")
	expectCode(t, rec, http.StatusCreated, "")

	rec = s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "D@x.com"}, "")
	expectCode(t, rec, http.StatusConflict, "USER_EXISTS")
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newTestServer(t)
	session := registerActivated(t, s, "e@x.com", "secret")

	rec := s.do(t, http.MethodPost, "/auth/logout", nil, session)
	expectCode(t, rec, http.StatusNoContent, "")
	cleared := sessionCookie(t, rec)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}

	rec = s.do(t, http.MethodGet, "/auth/user", nil, session)
	expectCode(t, rec, http.StatusForbidden, "TOKEN_INVALID")
}

func TestLogoutRequiresSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/logout", nil, "")
	expectCode(t, rec, http.StatusUnauthorized, "TOKEN_MISSING")
}

func TestLogoutAlsoRevokesRenewedSession(t *testing.T) {
	s := newTestServer(t)
	session := registerActivated(t, s, "f@x.com", "secret")
	s.advance(2 * time.Hour)

	rec := s.do(t, http.MethodPost, "/auth/logout", nil, session)
	expectCode(t, rec, http.StatusNoContent, "")

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 || cookies[0].Value == "" || cookies[1].Value != "" {
		t.Fatalf("expected renewed then cleared cookie, got %+v", cookies)
	}

	for _, raw := range []string{session, cookies[0].Value} {
		rec = s.do(t, http.MethodGet, "/auth/user", nil, raw)
		expectCode(t, rec, http.StatusForbidden, "TOKEN_INVALID")
	}
}

func TestRenewedSessionKeepsWorking(t *testing.T) {
	s := newTestServer(t)
	session := registerActivated(t, s, "f2@x.com", "secret")
	s.advance(2 * time.Hour)

	rec := s.do(t, http.MethodGet, "/auth/user", nil, session)
	expectCode(t, rec, http.StatusOK, "")
	renewed := sessionCookie(t, rec).Value
	if renewed == session {
		t.Fatalf("expected a renewed session")
	}

	rec = s.do(t, http.MethodGet, "/auth/user", nil, renewed)
	expectCode(t, rec, http.StatusOK, "")
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("a fresh session must not be renewed again")
	}

	rec = s.do(t, http.MethodGet, "/auth/user", nil, session)
	expectCode(t, rec, http.StatusOK, "")
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	registerActivated(t, s, "g@x.com", "old-secret")

	rec := s.do(t, http.MethodPost, "/auth/request-password-reset", map[string]string{"email": "nobody@x.com"}, "")
	expectCode(t, rec, http.StatusNoContent, "")
	if s.notifier.count() != 0 {
		t.Fatalf("unknown email must not send mail")
	}

	rec = s.do(t, http.MethodPost, "/auth/request-password-reset", map[string]string{"email": "g@x.com"}, "")
	expectCode(t, rec, http.StatusNoContent, "")
	reset := s.notifier.last(t)
	if reset.kind != "password_reset" {
		t.Fatalf("expected reset email, got %+v", reset)
	}

	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": reset.token, "password": "new-secret"}, "")
	expectCode(t, rec, http.StatusForbidden, "ACTIVATION_TOKEN_EXPIRED_OR_INVALID")

	rec = s.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": reset.token, "password": "new-secret"}, "")
	expectCode(t, rec, http.StatusOK, "")

	rec = s.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": reset.token, "password": "other"}, "")
	expectCode(t, rec, http.StatusForbidden, "PASSWORD_RESET_TOKEN_EXPIRED_OR_INVALID")

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "g@x.com", "password": "new-secret"}, "")
	expectCode(t, rec, http.StatusOK, "")
}

func TestExpiredResetToken(t *testing.T) {
	s := newTestServer(t)
	registerActivated(t, s, "h@x.com", "secret")

	rec := s.do(t, http.MethodPost, "/auth/request-password-reset", map[string]string{"email": "h@x.com"}, "")
	expectCode(t, rec, http.StatusNoContent, "")
	reset := s.notifier.last(t)

	s.advance(25 * time.Hour)
	rec = s.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": reset.token, "password": "new-secret"}, "")
	expectCode(t, rec, http.StatusForbidden, "PASSWORD_RESET_TOKEN_EXPIRED_OR_INVALID")
}

func TestResendActivation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": "i@x.com"}, "")
	expectCode(t, rec, http.StatusCreated, "")
	first := s.notifier.last(t)

	rec = s.do(t, http.MethodPost, "/auth/resend-activation", map[string]string{"email": "i@x.com"}, "")
	expectCode(t, rec, http.StatusNoContent, "")
	second := s.notifier.last(t)
	if second.token == first.token {
		t.Fatalf("expected a fresh activation token")
	}

	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": first.token, "password": "p1"}, "")
	expectCode(t, rec, http.StatusForbidden, "ACTIVATION_TOKEN_EXPIRED_OR_INVALID")
	rec = s.do(t, http.MethodPost, "/auth/activate", map[string]string{"token": second.token, "password": "p1"}, "")
	expectCode(t, rec, http.StatusOK, "")
}

func TestCurrentUserRelations(t *testing.T) {
	s := newTestServer(t)
	session := registerActivated(t, s, "j@x.com", "secret")

	rec := s.do(t, http.MethodPost, "/todos", map[string]any{"items": []map[string]string{{"title": "milk"}}}, session)
	expectCode(t, rec, http.StatusCreated, "")

	rec = s.do(t, http.MethodGet, "/auth/user?relations=todos", nil, session)
	expectCode(t, rec, http.StatusOK, "")
	var account accountBody
	decode(t, rec, &account)
	if len(account.Todos) != 1 || len(account.Todos[0].Items) != 1 || account.Todos[0].Items[0].Title != "milk" {
		t.Fatalf("unexpected todos: %+v", account.Todos)
	}

	rec = s.do(t, http.MethodGet, "/auth/user?relations=userPasswordHash", nil, session)
	expectCode(t, rec, http.StatusBadRequest, "UNKNOWN_RELATION")
}
