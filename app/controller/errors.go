package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-todo/app/dto"
)

func badRequest(ctx echo.Context, code, message string) error {
	return ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(code, message))
}

func forbidden(ctx echo.Context, code, message string) error {
	return ctx.JSON(http.StatusForbidden, dto.NewErrorResponse(code, message))
}

func internalError(ctx echo.Context, err error, msg string) error {
	logrus.WithError(err).Error(msg)
	return ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeInternalError, "internal server error"))
}
