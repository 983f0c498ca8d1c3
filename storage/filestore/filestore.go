// Package filestore keeps uploaded file contents on local disk.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/file"
)

type diskStorage struct {
	root string
}

var _ file.Storage = (*diskStorage)(nil) // interface compliance check

// NewDiskStorage returns a store rooted at dir, creating it if needed.
func NewDiskStorage(dir string) (*diskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &diskStorage{root: dir}, nil
}

func (s diskStorage) Save(ctx context.Context, path string, content io.Reader) (int64, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Wrap(err, "creating target dir")
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(f, content)
	if err != nil {
		_ = os.Remove(dst)
		return 0, errors.Wrap(err, "writing file")
	}
	return n, nil
}

func (s diskStorage) Delete(ctx context.Context, path string) error {
	dst := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
