package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlist/clearlist/internal/database"
	"github.com/clearlist/clearlist/internal/todo/domain"
	"github.com/clearlist/clearlist/internal/todo/repository"
	"github.com/clearlist/clearlist/internal/todo/service"
	"github.com/clearlist/clearlist/internal/todo/storage"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type testEnv struct {
	srv       *httptest.Server
	uploadDir string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := repository.NewTodoRepo(db)
	require.NoError(t, err)

	uploadDir := t.TempDir()
	disk, err := storage.NewDisk(uploadDir)
	require.NoError(t, err)

	lg := discardLogger()
	svc := service.NewTodoService(repo, disk, lg, service.WithClock(func() time.Time { return fixedNow }))
	h := &TodoHandler{Service: svc, Logger: lg, MaxUploadSize: maxUpload}

	srv := httptest.NewServer(NewRouter(h, uploadDir, "").Route(lg))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, uploadDir: uploadDir}
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

type filePart struct {
	name    string
	content []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func (e *testEnv) postTodo(t *testing.T, fields map[string]string, file *filePart) (*http.Response, []byte) {
	t.Helper()

	body, ct := multipartBody(t, fields, file)
	resp, err := http.Post(e.srv.URL+"/api/todos", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, body := env.get(t, "/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCreateTodo_Golden(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, body := env.postTodo(t, map[string]string{"title": "Buy milk"}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	newGolden(t).Assert(t, "create_todo", body)
}

func TestCreateTodo_TitleRequired(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{name: "missing title", fields: map[string]string{"description": "no title"}},
		{name: "empty title", fields: map[string]string{"title": ""}},
		{name: "blank title", fields: map[string]string{"title": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)

			resp, body := env.postTodo(t, tt.fields, &filePart{name: "a.txt", content: []byte("data")})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			newGolden(t).Assert(t, "title_required", body)

			// ничего не сохранилось
			_, list := env.get(t, "/api/todos")
			assert.JSONEq(t, `[]`, string(list))

			entries, err := os.ReadDir(env.uploadDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestListTodos_Empty(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, body := env.get(t, "/api/todos")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	newGolden(t).Assert(t, "list_empty", body)
}

func TestListTodos_Golden(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, _ := env.postTodo(t, map[string]string{"title": "Buy milk"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = env.postTodo(t, map[string]string{"title": "Walk dog", "description": "after lunch"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.get(t, "/api/todos")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	newGolden(t).Assert(t, "list_todos", body)
}

func TestCreateTodo_FileRoundTrip(t *testing.T) {
	env := newTestEnv(t, 0)
	content := []byte("%PDF-1.4 fake pdf body\x00\xff")

	resp, body := env.postTodo(t,
		map[string]string{"title": "with file"},
		&filePart{name: "Scan.PDF", content: content},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var todo domain.Todo
	require.NoError(t, json.Unmarshal(body, &todo))
	require.NotNil(t, todo.FileURL)
	assert.True(t, strings.HasPrefix(*todo.FileURL, "/uploads/"))
	assert.True(t, strings.HasSuffix(*todo.FileURL, ".pdf"))

	resp, got := env.get(t, *todo.FileURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, got)

	// в списке тот же file_url
	_, list := env.get(t, "/api/todos")
	var todos []domain.Todo
	require.NoError(t, json.Unmarshal(list, &todos))
	require.Len(t, todos, 1)
	require.NotNil(t, todos[0].FileURL)
	assert.Equal(t, *todo.FileURL, *todos[0].FileURL)
}

func TestCreateTodo_KeepsSubmittedBytes(t *testing.T) {
	env := newTestEnv(t, 0)
	title := "cafe\u0301"
	description := "na\u0308ive"

	resp, body := env.postTodo(t, map[string]string{"title": title, "description": description}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var todo domain.Todo
	require.NoError(t, json.Unmarshal(body, &todo))
	assert.Equal(t, []byte(title), []byte(todo.Title))
	require.NotNil(t, todo.Description)
	assert.Equal(t, []byte(description), []byte(*todo.Description))

	_, list := env.get(t, "/api/todos")
	var todos []domain.Todo
	require.NoError(t, json.Unmarshal(list, &todos))
	require.Len(t, todos, 1)
	assert.Equal(t, []byte(title), []byte(todos[0].Title))
	require.NotNil(t, todos[0].Description)
	assert.Equal(t, []byte(description), []byte(*todos[0].Description))
}

func TestUploads_ServedAsAttachment(t *testing.T) {
	env := newTestEnv(t, 0)
	content := []byte("<html><script>alert(1)</script></html>")

	resp, body := env.postTodo(t,
		map[string]string{"title": "page"},
		&filePart{name: "page.html", content: content},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var todo domain.Todo
	require.NoError(t, json.Unmarshal(body, &todo))
	require.NotNil(t, todo.FileURL)
	name := strings.TrimPrefix(*todo.FileURL, "/uploads/")

	resp, got := env.get(t, *todo.FileURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, got)
	assert.Equal(t, `attachment; filename="`+name+`"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestCreateTodo_URLEncoded(t *testing.T) {
	env := newTestEnv(t, 0)

	form := url.Values{"title": {"plain form"}, "description": {"d"}}
	resp, err := http.PostForm(env.srv.URL+"/api/todos", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var todo domain.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&todo))
	assert.Equal(t, "plain form", todo.Title)
	require.NotNil(t, todo.Description)
	assert.Equal(t, "d", *todo.Description)
}

func TestCreateTodo_JSONBodyHasNoTitle(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, err := http.Post(env.srv.URL+"/api/todos", "application/json", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTodo_TooLarge(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.postTodo(t,
		map[string]string{"title": "big"},
		&filePart{name: "big.bin", content: bytes.Repeat([]byte("x"), 4096)},
	)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.JSONEq(t, `{"error":"File too large"}`, string(body))
}

func TestCreateTodo_MalformedMultipart(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, err := http.Post(env.srv.URL+"/api/todos", "multipart/form-data; boundary=xyz", strings.NewReader("garbage"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type failingService struct{}

func (failingService) List(context.Context) ([]domain.Todo, error) {
	return nil, domain.ErrInRepo
}

func (failingService) Create(context.Context, domain.CreateTodo) (*domain.Todo, error) {
	return nil, domain.ErrInStorage
}

func TestHandlers_InternalError(t *testing.T) {
	lg := discardLogger()
	h := &TodoHandler{Service: failingService{}, Logger: lg}
	handler := NewRouter(h, t.TempDir(), "").Route(lg)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{name: "list", req: httptest.NewRequest(http.MethodGet, "/api/todos", nil)},
		{name: "create", req: func() *http.Request {
			body, ct := multipartBody(t, map[string]string{"title": "x"}, nil)
			r := httptest.NewRequest(http.MethodPost, "/api/todos", body)
			r.Header.Set("Content-Type", ct)
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, tt.req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"Internal error"}`, w.Body.String())
		})
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, 0)

	req, err := http.NewRequest(http.MethodDelete, env.srv.URL+"/api/todos", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUploads_NoListingOrHidden(t *testing.T) {
	env := newTestEnv(t, 0)
	require.NoError(t, os.WriteFile(env.uploadDir+"/.upload-123", []byte("tmp"), 0o644))

	for _, path := range []string{"/uploads/", "/uploads/.upload-123", "/uploads/missing.png"} {
		resp, _ := env.get(t, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

type panickingProvider struct{}

func (panickingProvider) ListTodos(http.ResponseWriter, *http.Request)  { panic("boom") }
func (panickingProvider) CreateTodo(http.ResponseWriter, *http.Request) { panic("boom") }
func (panickingProvider) Health(http.ResponseWriter, *http.Request)     { panic("boom") }

func TestRecoverMiddleware(t *testing.T) {
	lg := discardLogger()
	handler := NewRouter(panickingProvider{}, t.TempDir(), "").Route(lg)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/todos", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal error"}`, w.Body.String())
}

func TestEnableCORS(t *testing.T) {
	lg := discardLogger()
	h := &TodoHandler{Service: failingService{}, Logger: lg}
	handler := NewRouter(h, t.TempDir(), "http://localhost:3000").Route(lg)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/todos", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
