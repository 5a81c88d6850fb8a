package gateway

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/clearlist/clearlist/internal/todo/domain"
)

type TodoProvider interface {
	ListTodos(w http.ResponseWriter, r *http.Request)
	CreateTodo(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
}

type TodoRouter struct {
	h          TodoProvider
	uploadDir  string
	corsOrigin string
}

func NewRouter(handler TodoProvider, uploadDir, corsOrigin string) *TodoRouter {
	return &TodoRouter{h: handler, uploadDir: uploadDir, corsOrigin: corsOrigin}
}

func (r *TodoRouter) Route(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/todos", r.h.ListTodos)
	mux.HandleFunc("POST /api/todos", r.h.CreateTodo)
	mux.HandleFunc("GET /api/health", r.h.Health)
	mux.Handle("GET "+domain.UploadsPrefix, http.StripPrefix(domain.UploadsPrefix, uploadsHandler(r.uploadDir)))

	return enableCORS(r.corsOrigin, loggingMiddleware(logger, recoverMiddleware(logger, mux)))
}

// отдаём файлы из каталога загрузок как вложения, без листинга каталога
func uploadsHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if name == "" || strings.HasSuffix(name, "/") || strings.HasPrefix(name, ".") ||
			strings.ContainsAny(name, "\"\\") {
			http.NotFound(w, r)
			return
		}
		// файл всегда скачивается, а не рендерится на origin api
		w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	})
}
