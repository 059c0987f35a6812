package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// TodoListRepository reads to-do lists.
type TodoListRepository struct {
	db *sqlx.DB
}

// NewTodoListRepository constructs the repository.
func NewTodoListRepository(db *sqlx.DB) *TodoListRepository {
	return &TodoListRepository{db: db}
}

// ListWithDueDate returns the account's lists that have a due date.
func (r *TodoListRepository) ListWithDueDate(ctx context.Context, accountID string) ([]models.TodoList, error) {
	const query = `SELECT id, account_id, title, list_type, due_date FROM todo_lists WHERE account_id = $1 AND due_date IS NOT NULL ORDER BY due_date ASC`
	var items []models.TodoList
	if err := r.db.SelectContext(ctx, &items, query, accountID); err != nil {
		return nil, fmt.Errorf("list todo lists: %w", err)
	}
	return items, nil
}
