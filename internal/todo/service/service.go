package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/clearlist/clearlist/internal/todo/domain"
)

// интерфейс репо: сохранить задачу и отдать список
type TodoRepoInterface interface {
	Insert(ctx context.Context, todo *domain.Todo) error
	List(ctx context.Context) ([]domain.Todo, error)
}

// хранилище загруженных файлов
type BlobStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(name string) error
}

// сервис содержит репо, хранилище файлов и логгер (прокидывается снаружи)
type TodoService struct {
	Repo   TodoRepoInterface
	Blobs  BlobStore
	Logger *slog.Logger

	now func() time.Time
}

// Option configures a TodoService.
type Option func(*TodoService)

// WithClock replaces the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(s *TodoService) {
		s.now = now
	}
}

// передаем в сервис репо, хранилище и логгер
func NewTodoService(repo TodoRepoInterface, blobs BlobStore, logger *slog.Logger, opts ...Option) *TodoService {
	s := &TodoService{
		Repo:   repo,
		Blobs:  blobs,
		Logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all todos, newest first.
func (s *TodoService) List(ctx context.Context) ([]domain.Todo, error) {
	todos, err := s.Repo.List(ctx)
	if err != nil {
		s.Logger.Error("error listing todos", "error", err)
		return nil, domain.ErrInRepo
	}

	s.Logger.Info("returned todos", "count", len(todos))
	return todos, nil
}

// Create validates in, stores the attached file if any and persists the todo.
// A failed insert removes the stored file again.
func (s *TodoService) Create(ctx context.Context, in domain.CreateTodo) (*domain.Todo, error) {
	if strings.TrimSpace(in.Title) == "" {
		s.Logger.Warn("attempted todo creation without title")
		return nil, domain.NewValidationError(domain.MsgTitleRequired)
	}

	// заголовок и описание храним ровно в тех байтах, что прислал клиент
	todo := &domain.Todo{Title: in.Title}

	// пустое описание из формы храним как NULL
	if in.Description != nil && *in.Description != "" {
		d := *in.Description
		todo.Description = &d
	}

	if in.File != nil && in.File.Filename != "" {
		name, err := s.Blobs.Save(ctx, in.File.Filename, in.File.Body)
		if err != nil {
			s.Logger.Error("error saving file", "filename", in.File.Filename, "error", err)
			return nil, domain.ErrInStorage
		}
		todo.FileName = name
		s.Logger.Debug("saved file", "name", name, "size", in.File.Size, "content_type", in.File.ContentType)
	}

	todo.CreatedAt = s.now().UTC()

	if err := s.Repo.Insert(ctx, todo); err != nil {
		s.Logger.Error("error creating todo", "error", err)
		s.rollbackFile(todo.FileName)
		return nil, domain.ErrInRepo
	}

	s.Logger.Info("created todo", "id", todo.ID)
	return todo, nil
}

func (s *TodoService) rollbackFile(name string) {
	if name == "" {
		return
	}
	if err := s.Blobs.Remove(name); err != nil {
		s.Logger.Error("error removing orphaned file", "name", name, "error", err)
	}
}
