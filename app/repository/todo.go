package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

type TodoRepository struct {
	db DBTX
}

func NewTodoRepository(db DBTX) *TodoRepository {
	return &TodoRepository{db: db}
}

// Create inserts the todo and its items. Callers wanting all-or-nothing pass a *sql.Tx.
func (r *TodoRepository) Create(ctx context.Context, todo *entity.Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.NewString()
	}

	query := `INSERT INTO todos (id, account_id, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, todo.ID, todo.AccountID, todo.CreatedAt); err != nil {
		return err
	}

	itemQuery := `INSERT INTO todo_items (id, todo_id, position, title, done) VALUES (?, ?, ?, ?, ?)`
	for i, item := range todo.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.TodoID = todo.ID
		if _, err := r.db.ExecContext(ctx, itemQuery, item.ID, item.TodoID, i, item.Title, item.Done); err != nil {
			return err
		}
	}
	return nil
}

func (r *TodoRepository) FindByID(ctx context.Context, id string) (*entity.Todo, error) {
	query := `SELECT id, account_id, created_at FROM todos WHERE id = ?`
	todo := &entity.Todo{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&todo.ID, &todo.AccountID, &todo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// OwnerOf returns the owning account id, or "" when the todo does not exist.
func (r *TodoRepository) OwnerOf(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT account_id FROM todos WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return owner, err
}

func (r *TodoRepository) ListByAccount(ctx context.Context, accountID string) ([]*entity.Todo, error) {
	query := `SELECT id, account_id, created_at FROM todos WHERE account_id = ? ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]*entity.Todo, 0)
	for rows.Next() {
		todo := &entity.Todo{}
		if err := rows.Scan(&todo.ID, &todo.AccountID, &todo.CreatedAt); err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

// LoadItems fills Items on every todo passed in.
func (r *TodoRepository) LoadItems(ctx context.Context, todos ...*entity.Todo) error {
	query := `SELECT id, todo_id, title, done FROM todo_items WHERE todo_id = ? ORDER BY position`
	for _, todo := range todos {
		rows, err := r.db.QueryContext(ctx, query, todo.ID)
		if err != nil {
			return err
		}
		todo.Items = make([]*entity.TodoItem, 0)
		for rows.Next() {
			item := &entity.TodoItem{}
			if err := rows.Scan(&item.ID, &item.TodoID, &item.Title, &item.Done); err != nil {
				_ = rows.Close()
				return err
			}
			todo.Items = append(todo.Items, item)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// SetItemDone reports false when the item does not belong to the todo.
func (r *TodoRepository) SetItemDone(ctx context.Context, todoID, itemID string, done bool) (bool, error) {
	query := `UPDATE todo_items SET done = ? WHERE id = ? AND todo_id = ?`
	result, err := r.db.ExecContext(ctx, query, done, itemID, todoID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	// MySQL reports zero affected rows when the value is unchanged.
	if n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todo_items WHERE id = ? AND todo_id = ?`, itemID, todoID).Scan(&exists)
		if err != nil {
			return false, err
		}
		return exists > 0, nil
	}
	return true, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM todo_items WHERE todo_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	return err
}
