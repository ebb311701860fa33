package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid storage key")

type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

// resolve maps a key onto a path under base. Keys that would escape base are
// rejected.
func (s *FSStore) resolve(key string) (string, string, error) {
	clean := filepath.ToSlash(filepath.Clean("/" + strings.TrimSpace(key)))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", "", ErrInvalidKey
	}
	return clean, filepath.Join(s.base, filepath.FromSlash(clean)), nil
}

// Put writes through a temp file in the target directory and renames it into
// place, so readers never see a partly written document.
func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	canonical, dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return canonical, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	_, path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}
