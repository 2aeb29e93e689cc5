package attachment

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/graphif/stagecore/internal/typeid"
)

// MemoryStore keeps attachments in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	blobs  map[string]Blob
	byHash map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:  make(map[string]Blob),
		byHash: make(map[string]string),
	}
}

func (s *MemoryStore) Put(ctx context.Context, mime string, data []byte) (string, error) {
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
	s.blobs[info.ID] = Blob{Info: info, Data: slices.Clone(data)}
	s.byHash[info.Hash] = info.ID
	return info.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[id]
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b.Data = slices.Clone(b.Data)
	return b, nil
}

func (s *MemoryStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[id]
	return ok
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.blobs, id)
	delete(s.byHash, b.Hash)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.blobs))
	for _, b := range s.blobs {
		out = append(out, b.Info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}
