package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

// FileStore keeps one <id>.json per saved analysis under Root.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("file store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, id+fileExt)
}

func (s *FileStore) Put(_ context.Context, id string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id, err := NormalizeID(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", id, err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		return fmt.Errorf("rename %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(out)
	return out, nil
}
