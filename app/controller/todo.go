package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-todo/app/dto"
	"github.com/vibast-solutions/ms-go-todo/app/middleware"
	"github.com/vibast-solutions/ms-go-todo/app/service"
	"github.com/vibast-solutions/ms-go-todo/app/types"
)

// TodoController serves the caller's to-do lists. Routes taking :id run behind the ownership check.
type TodoController struct {
	todoService service.TodoService
}

func NewTodoController(todoService service.TodoService) *TodoController {
	return &TodoController{todoService: todoService}
}

func (c *TodoController) List(ctx echo.Context) error {
	account := middleware.AccountFromContext(ctx)

	relations, err := types.ParseRelations(ctx.QueryParam("relations"), types.RelationItems)
	if err != nil {
		return badRequest(ctx, dto.CodeUnknownRelation, err.Error())
	}

	todos, err := c.todoService.List(ctx.Request().Context(), account.ID, relations)
	if err != nil {
		return internalError(ctx, err, "Failed to list todos")
	}
	return ctx.JSON(http.StatusOK, types.NewTodoResponses(todos))
}

func (c *TodoController) Create(ctx echo.Context) error {
	account := middleware.AccountFromContext(ctx)

	req, err := types.NewCreateTodoRequestFromContext(ctx)
	if err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}
	if err = req.Validate(); err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	todo, err := c.todoService.Create(ctx.Request().Context(), account.ID, req)
	if err != nil {
		return internalError(ctx, err, "Failed to create todo")
	}
	return ctx.JSON(http.StatusCreated, types.NewTodoResponse(todo))
}

func (c *TodoController) Get(ctx echo.Context) error {
	relations, err := types.ParseRelations(ctx.QueryParam("relations"), types.RelationItems)
	if err != nil {
		return badRequest(ctx, dto.CodeUnknownRelation, err.Error())
	}

	todo, err := c.todoService.Get(ctx.Request().Context(), ctx.Param("id"), relations)
	if err != nil {
		if errors.Is(err, service.ErrTodoNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.CodeNotFound, "todo not found"))
		}
		return internalError(ctx, err, "Failed to load todo")
	}
	return ctx.JSON(http.StatusOK, types.NewTodoResponse(todo))
}

func (c *TodoController) UpdateItem(ctx echo.Context) error {
	req, err := types.NewUpdateTodoItemRequestFromContext(ctx)
	if err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, "invalid request body")
	}
	if err = req.Validate(); err != nil {
		return badRequest(ctx, dto.CodeValidationFailed, err.Error())
	}

	err = c.todoService.SetItemDone(ctx.Request().Context(), ctx.Param("id"), ctx.Param("itemId"), *req.Done)
	if err != nil {
		if errors.Is(err, service.ErrTodoItemNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.CodeNotFound, "todo item not found"))
		}
		return internalError(ctx, err, "Failed to update todo item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *TodoController) Delete(ctx echo.Context) error {
	if err := c.todoService.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return internalError(ctx, err, "Failed to delete todo")
	}
	return ctx.NoContent(http.StatusNoContent)
}
