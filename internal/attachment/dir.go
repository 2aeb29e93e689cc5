package attachment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/graphif/stagecore/internal/typeid"
)

const (
	dataExt = ".bin"
	metaExt = ".json"
)

// DirStore keeps each attachment as a data file plus a JSON sidecar in one directory.
type DirStore struct {
	dir string

	mu     sync.RWMutex
	infos  map[string]Info
	byHash map[string]string
}

// NewDirStore opens dir, creating it if needed, and indexes the sidecars found there.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	s := &DirStore{
		dir:    dir,
		infos:  make(map[string]Info),
		byHash: make(map[string]string),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read attachment dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != metaExt {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var info Info
		if err := json.Unmarshal(raw, &info); err != nil || info.ID == "" {
			slog.Warn("skip unreadable attachment sidecar", "file", e.Name(), "error", err)
			continue
		}
		s.infos[info.ID] = info
		s.byHash[info.Hash] = info.ID
	}
	return s, nil
}

func (s *DirStore) path(id, ext string) string {
	return filepath.Join(s.dir, id+ext)
}

func (s *DirStore) Put(ctx context.Context, mime string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	info := Describe(mime, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHash[info.Hash]; ok {
		return id, nil
	}
	info.ID = typeid.NewAttachmentID()
	info.CreatedAt = time.Now().UTC()

	meta, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode attachment info: %w", err)
	}
	if err := writeFileAtomic(s.path(info.ID, dataExt), data); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := writeFileAtomic(s.path(info.ID, metaExt), meta); err != nil {
		os.Remove(s.path(info.ID, dataExt))
		return "", fmt.Errorf("write attachment info: %w", err)
	}
	s.infos[info.ID] = info
	s.byHash[info.Hash] = info.ID
	return info.ID, nil
}

func (s *DirStore) Get(ctx context.Context, id string) (Blob, error) {
	s.mu.RLock()
	info, ok := s.infos[id]
	s.mu.RUnlock()
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	data, err := os.ReadFile(s.path(id, dataExt))
	if errors.Is(err, fs.ErrNotExist) {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Blob{}, fmt.Errorf("read attachment: %w", err)
	}
	return Blob{Info: info, Data: data}, nil
}

func (s *DirStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.infos[id]
	return ok
}

func (s *DirStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.infos[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, ext := range []string{metaExt, dataExt} {
		if err := os.Remove(s.path(id, ext)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove attachment: %w", err)
		}
	}
	delete(s.infos, id)
	delete(s.byHash, info.Hash)
	return nil
}

func (s *DirStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.infos))
	for _, info := range s.infos {
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
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
