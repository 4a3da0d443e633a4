package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

const maxTitleLength = 255

type TodoItemInput struct {
	Title string `json:"title"`
}

func (i TodoItemInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Title, validation.Required, validation.Length(1, maxTitleLength)),
	)
}

type CreateTodoRequest struct {
	Items []TodoItemInput `json:"items"`
}

func NewCreateTodoRequestFromContext(ctx echo.Context) (*CreateTodoRequest, error) {
	var body CreateTodoRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *CreateTodoRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Items, validation.Length(0, 100)),
	)
}

type UpdateTodoItemRequest struct {
	Done *bool `json:"done"`
}

func NewUpdateTodoItemRequestFromContext(ctx echo.Context) (*UpdateTodoItemRequest, error) {
	var body UpdateTodoItemRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *UpdateTodoItemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Done, validation.NotNil),
	)
}

type TodoItemResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type TodoResponse struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"createdAt"`
	Items     []*TodoItemResponse `json:"items,omitempty"`
}

func NewTodoResponse(todo *entity.Todo) *TodoResponse {
	resp := &TodoResponse{
		ID:        todo.ID,
		CreatedAt: todo.CreatedAt,
	}
	if todo.Items != nil {
		resp.Items = make([]*TodoItemResponse, 0, len(todo.Items))
		for _, item := range todo.Items {
			resp.Items = append(resp.Items, &TodoItemResponse{ID: item.ID, Title: item.Title, Done: item.Done})
		}
	}
	return resp
}

func NewTodoResponses(todos []*entity.Todo) []*TodoResponse {
	out := make([]*TodoResponse, 0, len(todos))
	for _, todo := range todos {
		out = append(out, NewTodoResponse(todo))
	}
	return out
}
