// Package storage keeps uploaded files on the local filesystem.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName is returned when a stored name would escape the upload directory.
var ErrInvalidName = errors.New("invalid file name")

// Disk stores blobs in a single directory under generated names.
type Disk struct {
	dir string
}

// NewDisk creates dir if needed and returns a Disk rooted there.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the upload directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Save writes r under a new unique name keeping the extension of filename,
// lowercased. The file only appears under its final name once fully written.
func (d *Disk) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	id := uuid.New()
	name := hex.EncodeToString(id[:]) + strings.ToLower(filepath.Ext(filename))

	// сначала пишем во временный файл в том же каталоге, потом переименовываем
	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, readerWithContext(ctx, r))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write upload: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(d.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("move upload: %w", err)
	}

	return name, nil
}

// Path resolves a stored name to its location on disk.
func (d *Disk) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(d.dir, name), nil
}

// Remove deletes a stored blob. Removing a missing blob is not an error.
func (d *Disk) Remove(name string) error {
	p, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
