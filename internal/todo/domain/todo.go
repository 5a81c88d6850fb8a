package domain

import (
	"io"
	"time"
)

// UploadsPrefix is the URL path under which stored files are served back.
const UploadsPrefix = "/uploads/"

// основная структура задачи. description и file_url в JSON становятся null, если их нет
type Todo struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	FileURL     *string   `json:"file_url"`
	CreatedAt   time.Time `json:"created_at"`

	// имя файла в каталоге загрузок, наружу отдаётся только FileURL
	FileName string `json:"-"`
}

// Upload is a file attached to a todo at creation time.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateTodo is the validated input of the create operation.
type CreateTodo struct {
	Title       string
	Description *string
	File        *Upload
}

// URLForFile returns the public URL of a stored file, or nil when there is none.
func URLForFile(name string) *string {
	if name == "" {
		return nil
	}
	u := UploadsPrefix + name
	return &u
}
