package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/clearlist/clearlist/internal/todo/domain"
)

// DefaultMaxUploadSize limits the whole create request body.
const DefaultMaxUploadSize = 32 << 20 // 32 МБ

// форма целиком до этого размера держится в памяти, остальное уходит во временные файлы
const multipartMemory = 8 << 20

const (
	msgInternal    = "Internal error"
	msgInvalidForm = "Invalid form data"
	msgTooLarge    = "File too large"
)

// TodoService is what the handlers need from the todo service.
type TodoService interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Create(ctx context.Context, in domain.CreateTodo) (*domain.Todo, error)
}

type TodoHandler struct {
	Service       TodoService
	Logger        *slog.Logger
	MaxUploadSize int64
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func handleError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// ошибки сервиса: валидация отдаётся клиенту как есть, остальное - общим 500
func handleServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		handleError(w, verr.Msg, http.StatusBadRequest)
		return
	}
	handleError(w, msgInternal, http.StatusInternalServerError)
}

func (h *TodoHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.Logger.Debug("health endpoint hit")
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	maxSize := h.MaxUploadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	in, cleanup, ok := h.parseCreate(w, r)
	if !ok {
		return
	}
	defer cleanup()

	todo, err := h.Service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, todo)
}

// parseCreate reads the multipart (or url-encoded) form into a CreateTodo.
// It writes the error response itself and reports ok=false on failure.
func (h *TodoHandler) parseCreate(w http.ResponseWriter, r *http.Request) (domain.CreateTodo, func(), bool) {
	var in domain.CreateTodo
	cleanup := func() {}

	err := r.ParseMultipartForm(multipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Logger.Warn("request body too large", "limit", maxErr.Limit)
			handleError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
			return in, cleanup, false
		}

		h.Logger.Warn("invalid form", "details", err)
		handleError(w, msgInvalidForm, http.StatusBadRequest)
		return in, cleanup, false
	}

	if r.MultipartForm != nil {
		form := r.MultipartForm
		cleanup = func() { _ = form.RemoveAll() }
	}

	in.Title = r.PostFormValue("title")
	if vs, ok := r.PostForm["description"]; ok && len(vs) > 0 {
		d := vs[0]
		in.Description = &d
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, cleanup, true
	case err != nil:
		h.Logger.Warn("failed to read file part", "details", err)
		handleError(w, msgInvalidForm, http.StatusBadRequest)
		return in, cleanup, false
	}

	prev := cleanup
	cleanup = func() {
		file.Close()
		prev()
	}

	// для определения типа файла читаем первые 512 байт (сигнатуру)
	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	cType := header.Header.Get("Content-Type")
	if cType == "" || cType == "application/octet-stream" {
		cType = http.DetectContentType(sniff[:n])
	}

	in.File = &domain.Upload{
		Filename:    header.Filename,
		ContentType: cType,
		Size:        header.Size,
		// склеиваем прочитанную сигнатуру и остаток файла
		Body: io.MultiReader(bytes.NewReader(sniff[:n]), file),
	}
	return in, cleanup, true
}
