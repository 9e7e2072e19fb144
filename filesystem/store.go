// Package filesystem provides a local file system blob store backend for the
// relay. It supports atomic writes using temp files and keeps each object's
// content type in a sidecar file, falling back to detection by extension.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sagarc03/mediarelay"
)

// metaDir holds the content type sidecars, mirroring the object layout.
const metaDir = ".meta"

// Store provides file system blob storage.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens the object under key. Returns mediarelay.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, key string) (mediarelay.Object, error) {
	if err := ctx.Err(); err != nil {
		return mediarelay.Object{}, err
	}

	if isMetaKey(key) {
		return mediarelay.Object{}, mediarelay.ErrNotFound
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mediarelay.Object{}, mediarelay.ErrNotFound
		}
		return mediarelay.Object{}, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return mediarelay.Object{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return mediarelay.Object{}, mediarelay.ErrNotFound
	}

	return mediarelay.Object{
		ContentType: s.contentType(key),
		Size:        info.Size(),
		Body:        f,
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under key using a temp file and rename, then
// records contentType in the sidecar. It creates intermediate directories as
// needed and respects context cancellation. size is informational only.
func (s *Store) Put(ctx context.Context, key, contentType string, content io.Reader, size int64) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if isMetaKey(key) {
		return fmt.Errorf("put %s: %w: reserved path", key, mediarelay.ErrInvalidInput)
	}

	written, err := s.writeAtomic(ctx, key, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return err
	}
	if size >= 0 && written != size {
		slog.Warn("object size differs from declared size", "key", key, "declared", size, "written", written)
	}

	if _, err := s.writeAtomic(ctx, metaPath(key), strings.NewReader(contentType)); err != nil {
		// An object is never left behind without its sidecar.
		if removeErr := s.root.Remove(key); removeErr != nil {
			slog.Warn("failed to remove object after content type write failed", "key", key, "err", removeErr)
		}
		return fmt.Errorf("could not write content type: %w", err)
	}

	return nil
}

func (s *Store) writeAtomic(ctx context.Context, dest string, content io.Reader) (int64, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return 0, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, content)
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err = t.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := path.Dir(dest)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return 0, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, dest); renameErr != nil {
		return 0, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return written, nil
}

func (s *Store) contentType(key string) string {
	data, err := fsReadFile(s.root, metaPath(key))
	if err == nil && len(data) > 0 {
		return string(data)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read content type", "key", key, "err", err)
	}
	return detectContentType(key)
}

func fsReadFile(root *os.Root, name string) ([]byte, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, 1024))
}

func metaPath(key string) string {
	return path.Join(metaDir, key)
}

func isMetaKey(key string) bool {
	return key == metaDir || strings.HasPrefix(key, metaDir+"/")
}

func detectContentType(key string) string {
	contentType := mime.TypeByExtension(path.Ext(key))

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
