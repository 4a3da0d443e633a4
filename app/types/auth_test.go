package types

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

func TestRegisterRequestValidate(t *testing.T) {
	if err := (&RegisterRequest{Email: "a@x.com"}).Validate(); err != nil {
		t.Fatalf("expected password to be optional, got %v", err)
	}
	if err := (&RegisterRequest{Email: "not-an-email", Password: "p"}).Validate(); err == nil {
		t.Fatalf("expected invalid email to fail")
	}
	if err := (&RegisterRequest{}).Validate(); err == nil {
		t.Fatalf("expected missing email to fail")
	}
}

func TestPasswordSettingRequestValidate(t *testing.T) {
	if err := (&PasswordSettingRequest{Token: "t"}).Validate(); err == nil {
		t.Fatalf("expected missing password to fail")
	}
	if err := (&PasswordSettingRequest{Password: "p"}).Validate(); err == nil {
		t.Fatalf("expected missing token to fail")
	}
	if err := (&PasswordSettingRequest{Token: "t", Password: "p"}).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCreateTodoRequestValidate(t *testing.T) {
	if err := (&CreateTodoRequest{Items: []TodoItemInput{{Title: "milk"}}}).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if err := (&CreateTodoRequest{Items: []TodoItemInput{{Title: ""}}}).Validate(); err == nil {
		t.Fatalf("expected empty title to fail")
	}
	if err := (&UpdateTodoItemRequest{}).Validate(); err == nil {
		t.Fatalf("expected missing done to fail")
	}
}

func TestAccountResponseOmitsSecrets(t *testing.T) {
	account := &entity.Account{
		ID:                 "acc-1",
		Email:              "a@x.com",
		PasswordHash:       sql.NullString{String: "$2a$10$hash", Valid: true},
		PasswordResetToken: sql.NullString{String: "reset-secret", Valid: true},
		CreatedAt:          time.Now(),
	}

	raw, err := json.Marshal(NewAccountResponse(account, nil))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "$2a$10$hash") || strings.Contains(body, "reset-secret") {
		t.Fatalf("response leaked secrets: %s", body)
	}
	if !strings.Contains(body, `"isActivated":true`) || strings.Contains(body, "todos") {
		t.Fatalf("unexpected response body: %s", body)
	}
}
