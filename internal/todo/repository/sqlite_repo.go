package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clearlist/clearlist/internal/database"
	"github.com/clearlist/clearlist/internal/todo/domain"
)

// репозиторий содержит указатель на бд и реализует интерфейс TodoRepoInterface
type TodoRepo struct {
	db *sql.DB
}

const (
	tableName = "todos" // имя таблицы для удобства
)

// NewTodoRepo makes sure the schema exists before handing out the repository.
func NewTodoRepo(db *sql.DB) (*TodoRepo, error) {
	if err := database.Migrate(context.Background(), db); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &TodoRepo{
		db: db,
	}, nil
}

// Insert stores todo and sets its ID from the generated key.
func (r *TodoRepo) Insert(ctx context.Context, todo *domain.Todo) error {
	query := "INSERT INTO " + tableName + " (title, description, file_name, created_at) " +
		"VALUES (?, ?, ?, ?);"

	var description sql.NullString
	if todo.Description != nil {
		description = sql.NullString{String: *todo.Description, Valid: true}
	}

	res, err := r.db.ExecContext(
		ctx, query,
		todo.Title,
		description,
		sql.NullString{String: todo.FileName, Valid: todo.FileName != ""},
		todo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	todo.ID = id
	todo.FileURL = domain.URLForFile(todo.FileName)
	return nil
}

// List returns every todo, newest first. Todos created within the same
// instant fall back to id order so the result is stable.
func (r *TodoRepo) List(ctx context.Context) ([]domain.Todo, error) {
	query := "SELECT id, title, description, file_name, created_at FROM " + tableName +
		" ORDER BY created_at DESC, id DESC;"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		var (
			t           domain.Todo
			description sql.NullString
			fileName    sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &description, &fileName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}

		if description.Valid {
			d := description.String
			t.Description = &d
		}
		t.FileName = fileName.String
		t.FileURL = domain.URLForFile(t.FileName)
		t.CreatedAt = t.CreatedAt.UTC()

		todos = append(todos, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}

	return todos, nil
}

// Count returns the number of stored todos.
func (r *TodoRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName+";").Scan(&n); err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return n, nil
}
