package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/repository"
	"github.com/vibast-solutions/ms-go-todo/app/types"
)

type todoRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Todo, error)
	OwnerOf(ctx context.Context, id string) (string, error)
	ListByAccount(ctx context.Context, accountID string) ([]*entity.Todo, error)
	LoadItems(ctx context.Context, todos ...*entity.Todo) error
	SetItemDone(ctx context.Context, todoID, itemID string, done bool) (bool, error)
	Delete(ctx context.Context, id string) error
}

// TodoService serves the to-do lists of an authenticated account. Ownership is enforced upstream by
// the request gate; OwnerOf exposes the lookup it needs.
type TodoService interface {
	List(ctx context.Context, accountID string, relations types.Relations) ([]*entity.Todo, error)
	Get(ctx context.Context, id string, relations types.Relations) (*entity.Todo, error)
	Create(ctx context.Context, accountID string, req *types.CreateTodoRequest) (*entity.Todo, error)
	SetItemDone(ctx context.Context, todoID, itemID string, done bool) error
	Delete(ctx context.Context, id string) error
	OwnerOf(ctx context.Context, id string) (string, error)
}

type todoService struct {
	db    *sql.DB
	todos todoRepository
}

func NewTodoService(db *sql.DB, todos todoRepository) TodoService {
	return &todoService{db: db, todos: todos}
}

func (s *todoService) List(ctx context.Context, accountID string, relations types.Relations) ([]*entity.Todo, error) {
	todos, err := s.todos.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if relations.Has(types.RelationItems) {
		if err = s.todos.LoadItems(ctx, todos...); err != nil {
			return nil, err
		}
	}
	return todos, nil
}

func (s *todoService) Get(ctx context.Context, id string, relations types.Relations) (*entity.Todo, error) {
	todo, err := s.todos.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, ErrTodoNotFound
	}
	if relations.Has(types.RelationItems) {
		if err = s.todos.LoadItems(ctx, todo); err != nil {
			return nil, err
		}
	}
	return todo, nil
}

func (s *todoService) Create(ctx context.Context, accountID string, req *types.CreateTodoRequest) (*entity.Todo, error) {
	todo := &entity.Todo{
		AccountID: accountID,
		CreatedAt: time.Now().UTC(),
		Items:     make([]*entity.TodoItem, 0, len(req.Items)),
	}
	for _, input := range req.Items {
		todo.Items = append(todo.Items, &entity.TodoItem{Title: input.Title})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err = repository.NewTodoRepository(tx).Create(ctx, todo); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"todo_id":    todo.ID,
		"account_id": accountID,
		"items":      len(todo.Items),
	}).Debug("Todo created")

	return todo, nil
}

func (s *todoService) SetItemDone(ctx context.Context, todoID, itemID string, done bool) error {
	ok, err := s.todos.SetItemDone(ctx, todoID, itemID, done)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTodoItemNotFound
	}
	return nil
}

func (s *todoService) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = repository.NewTodoRepository(tx).Delete(ctx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *todoService) OwnerOf(ctx context.Context, id string) (string, error) {
	return s.todos.OwnerOf(ctx, id)
}
