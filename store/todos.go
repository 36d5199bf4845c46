package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mini-todos/models"
)

// TodoStore handles persistence for todos. Every query is filtered by
// creator_id so a caller can never reach another user's rows, even with a
// valid id in hand.
type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) *TodoStore {
	return &TodoStore{db: db}
}

// TodoChanges is the allow-listed set of mutable todo fields.
type TodoChanges struct {
	Text        *string
	Completed   bool
	CompletedAt *time.Time
}

func (s *TodoStore) Create(ctx context.Context, creatorID, text string) (models.Todo, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO todos (id, text, creator_id) VALUES (?, ?, ?)",
		id, text, creatorID)
	if err != nil {
		return models.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return s.GetByID(ctx, id, creatorID)
}

func (s *TodoStore) ListByCreator(ctx context.Context, creatorID string) ([]models.Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, completed, completed_at, creator_id, created_at FROM todos WHERE creator_id = ?",
		creatorID)
	if err != nil {
		return nil, fmt.Errorf("select todos: %w", err)
	}
	defer rows.Close()

	todos := make([]models.Todo, 0)
	for rows.Next() {
		var todo models.Todo
		if err := rows.Scan(&todo.ID, &todo.Text, &todo.Completed, &todo.CompletedAt, &todo.CreatorID, &todo.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select todos: %w", err)
	}
	return todos, nil
}

func (s *TodoStore) GetByID(ctx context.Context, id, creatorID string) (models.Todo, error) {
	var todo models.Todo
	err := s.db.QueryRowContext(ctx,
		"SELECT id, text, completed, completed_at, creator_id, created_at FROM todos WHERE id = ? AND creator_id = ?",
		id, creatorID).Scan(&todo.ID, &todo.Text, &todo.Completed, &todo.CompletedAt, &todo.CreatorID, &todo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Todo{}, ErrNotFound
		}
		return models.Todo{}, fmt.Errorf("select todo: %w", err)
	}
	return todo, nil
}

// Delete permanently removes an owned todo and returns its prior state.
func (s *TodoStore) Delete(ctx context.Context, id, creatorID string) (models.Todo, error) {
	todo, err := s.GetByID(ctx, id, creatorID)
	if err != nil {
		return models.Todo{}, err
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND creator_id = ?",
		id, creatorID)
	if err != nil {
		return models.Todo{}, fmt.Errorf("delete todo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Todo{}, fmt.Errorf("delete todo: %w", err)
	}
	if affected == 0 {
		// Lost a race with another delete on the same row.
		return models.Todo{}, ErrNotFound
	}
	return todo, nil
}

func (s *TodoStore) Update(ctx context.Context, id, creatorID string, changes TodoChanges) (models.Todo, error) {
	var err error
	if changes.Text != nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE todos SET text = ?, completed = ?, completed_at = ? WHERE id = ? AND creator_id = ?",
			*changes.Text, changes.Completed, changes.CompletedAt, id, creatorID)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE todos SET completed = ?, completed_at = ? WHERE id = ? AND creator_id = ?",
			changes.Completed, changes.CompletedAt, id, creatorID)
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return s.GetByID(ctx, id, creatorID)
}
