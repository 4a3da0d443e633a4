package types

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

const maxEmailLength = 255

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Email = strings.TrimSpace(body.Email)

	return &body, nil
}

// Validate leaves password strength to the configured policy; an empty password means activation by email.
func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmailLength), is.Email),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Email = strings.TrimSpace(body.Email)

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmailLength)),
		validation.Field(&r.Password, validation.Required),
	)
}

// PasswordSettingRequest is the body of both /auth/activate and /auth/reset-password.
type PasswordSettingRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func NewPasswordSettingRequestFromContext(ctx echo.Context) (*PasswordSettingRequest, error) {
	var body PasswordSettingRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Token = strings.TrimSpace(body.Token)

	return &body, nil
}

func (r *PasswordSettingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// EmailRequest is the body of /auth/request-password-reset and /auth/resend-activation.
type EmailRequest struct {
	Email string `json:"email"`
}

func NewEmailRequestFromContext(ctx echo.Context) (*EmailRequest, error) {
	var body EmailRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Email = strings.TrimSpace(body.Email)

	return &body, nil
}

func (r *EmailRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmailLength), is.Email),
	)
}

// AccountResponse never carries the password hash or any stored token.
type AccountResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	IsActivated bool            `json:"isActivated"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Todos       []*TodoResponse `json:"todos,omitempty"`
}

func NewAccountResponse(account *entity.Account, todos []*entity.Todo) *AccountResponse {
	resp := &AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		IsActivated: account.IsActivated(),
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
	if todos != nil {
		resp.Todos = NewTodoResponses(todos)
	}
	return resp
}
