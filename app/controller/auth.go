package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-todo/app/dto"
	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/middleware"
	"github.com/vibast-solutions/ms-go-todo/app/service"
	"github.com/vibast-solutions/ms-go-todo/app/types"
	"github.com/vibast-solutions/ms-go-todo/config"
)

type AuthController struct {
	authService service.AuthService
	todoService service.TodoService
	cookie      config.CookieConfig
}

func NewAuthController(authService service.AuthService, todoService service.TodoService, cookie config.CookieConfig) *AuthController {
	return &AuthController{
		authService: authService,
		todoService: todoService,
		cookie:      cookie,
	}
}

func (c *AuthController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	account, err := c.authService.Register(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			logrus.WithField("email", req.Email).Warn("Register failed: user already exists")
			return ctx.JSON(http.StatusConflict, dto.NewErrorResponse(dto.CodeUserExists, "user already exists"))
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return badRequest(ctx, dto.CodeWeakPassword, err.Error())
		}
		return internalError(ctx, err, "Register failed")
	}

	return ctx.JSON(http.StatusCreated, types.NewAccountResponse(account, nil))
}

func (c *AuthController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}

	if err = req.Validate(); err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	result, err := c.authService.Login(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return forbidden(ctx, dto.CodeIncorrectEmailOrPassword, "incorrect email or password")
		}
		if errors.Is(err, service.ErrAccountNotActivated) {
			logrus.WithField("email", req.Email).Warn("Login failed: account not activated")
			return forbidden(ctx, dto.CodeUserNotActivated, "account is not activated")
		}
		return internalError(ctx, err, "Login failed")
	}

	middleware.SetSessionCookie(ctx, c.cookie, result.Token, result.ExpiresAt)
	logrus.WithField("account_id", result.Account.ID).Info("Login successful")

	return ctx.JSON(http.StatusOK, types.NewAccountResponse(result.Account, nil))
}

// Logout revokes the presented session and any token renewed while serving this request.
func (c *AuthController) Logout(ctx echo.Context) error {
	raw, claims := middleware.SessionFromContext(ctx)
	if raw == "" || claims == nil {
		return ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.CodeTokenMissing, "authentication required"))
	}
	c.authService.Logout(raw, claims)

	if renewed, renewedClaims := middleware.RenewedSessionFromContext(ctx); renewed != "" && renewedClaims != nil {
		c.authService.Logout(renewed, renewedClaims)
	}

	middleware.ClearSessionCookie(ctx, c.cookie)
	logrus.WithField("account_id", claims.Identity()).Info("Logout successful")

	return ctx.NoContent(http.StatusNoContent)
}

func (c *AuthController) Activate(ctx echo.Context) error {
	return c.setPassword(ctx, c.authService.Activate, dto.CodeActivationTokenInvalid, "activation token expired or invalid")
}

func (c *AuthController) ResetPassword(ctx echo.Context) error {
	return c.setPassword(ctx, c.authService.ResetPassword, dto.CodePasswordResetTokenInvalid, "password reset token expired or invalid")
}

func (c *AuthController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewEmailRequestFromContext(ctx)
	if err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}
	if err = req.Validate(); err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	if err = c.authService.RequestPasswordReset(ctx.Request().Context(), req); err != nil {
		return internalError(ctx, err, "Password reset request failed")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AuthController) ResendActivation(ctx echo.Context) error {
	req, err := types.NewEmailRequestFromContext(ctx)
	if err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}
	if err = req.Validate(); err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	if err = c.authService.ResendActivation(ctx.Request().Context(), req); err != nil {
		return internalError(ctx, err, "Resend activation failed")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AuthController) CurrentUser(ctx echo.Context) error {
	account := middleware.AccountFromContext(ctx)
	if account == nil {
		return ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.CodeTokenMissing, "authentication required"))
	}

	relations, err := types.ParseRelations(ctx.QueryParam("relations"), types.RelationTodos)
	if err != nil {
		return badRequest(ctx, dto.CodeUnknownRelation, err.Error())
	}

	var todos []*entity.Todo
	if relations.Has(types.RelationTodos) {
		todos, err = c.todoService.List(ctx.Request().Context(), account.ID, types.Relations{types.RelationItems: {}})
		if err != nil {
			return internalError(ctx, err, "Failed to load account todos")
		}
	}

	return ctx.JSON(http.StatusOK, types.NewAccountResponse(account, todos))
}

type passwordSetter func(ctx context.Context, req *types.PasswordSettingRequest) (*entity.Account, error)

func (c *AuthController) setPassword(ctx echo.Context, set passwordSetter, invalidCode, invalidMessage string) error {
	req, err := types.NewPasswordSettingRequestFromContext(ctx)
	if err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}
	if err = req.Validate(); err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	account, err := set(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.WithField("code", invalidCode).Warn("Secret token rejected")
			return forbidden(ctx, invalidCode, invalidMessage)
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return badRequest(ctx, dto.CodeWeakPassword, err.Error())
		}
		return internalError(ctx, err, "Failed to set password")
	}

	logrus.WithField("account_id", account.ID).Info("Password set")
	return ctx.JSON(http.StatusOK, types.NewAccountResponse(account, nil))
}
