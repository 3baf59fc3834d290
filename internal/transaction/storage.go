package transaction

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/muamalati/pkg/ids"
)

// FileStorage keeps document blobs; only metadata goes to the database.
type FileStorage interface {
	Save(ctx context.Context, originalName string, r io.Reader, maxBytes int64) (path string, size int64, err error)
	Remove(path string) error
}

type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Save writes r under a ULID name that keeps only the original extension.
func (s *LocalStorage) Save(ctx context.Context, originalName string, r io.Reader, maxBytes int64) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	name := ids.New() + safeExt(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

func (s *LocalStorage) Remove(path string) error {
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to remove %s outside upload dir", path)
	}
	return os.Remove(path)
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
