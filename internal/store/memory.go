package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory keeps documents in process memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	data    []byte
	updated time.Time
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryDoc)}
}

func (m *Memory) Load(ctx context.Context, projectID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return slices.Clone(doc.data), nil
}

func (m *Memory) Save(ctx context.Context, projectID string, data []byte) error {
	if err := CheckID(projectID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[projectID] = memoryDoc{data: slices.Clone(data), updated: time.Now().UTC()}
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.docs))
	for id, doc := range m.docs {
		out = append(out, Entry{ProjectID: id, Size: len(doc.data), UpdatedAt: doc.updated})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ProjectID, b.ProjectID) })
	return out, nil
}
