package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const docExt = ".json"

// Dir keeps one JSON file per project in a directory.
type Dir struct {
	dir string
	mu  sync.Mutex
}

// NewDir opens dir, creating it if needed.
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Dir{dir: dir}, nil
}

func (d *Dir) path(projectID string) string {
	return filepath.Join(d.dir, projectID+docExt)
}

func (d *Dir) Load(ctx context.Context, projectID string) ([]byte, error) {
	if err := CheckID(projectID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(projectID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return data, nil
}

func (d *Dir) Save(ctx context.Context, projectID string, data []byte) error {
	if err := CheckID(projectID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := writeFileAtomic(d.path(projectID), data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (d *Dir) List(ctx context.Context) ([]Entry, error) {
	files, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var out []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != docExt {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			ProjectID: strings.TrimSuffix(name, docExt),
			Size:      int(info.Size()),
			UpdatedAt: info.ModTime().UTC(),
		})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ProjectID, b.ProjectID) })
	return out, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
