// Package project manages stored mind-map documents over HTTP.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/store"
	"github.com/graphif/stagecore/internal/typeid"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrInvalidDocument = errors.New("invalid document")
	ErrLive            = errors.New("project is open in a collaboration room")
)

// Live exposes documents currently edited in collaboration rooms.
type Live interface {
	Document(projectID string) ([]byte, int64, bool)
}

type Service struct {
	docs store.DocumentStore
	live Live
}

// NewService serves projects from docs. live may be nil.
func NewService(docs store.DocumentStore, live Live) *Service {
	return &Service{docs: docs, live: live}
}

type Project struct {
	ID           string     `json:"id"`
	Version      int        `json:"version,omitempty"`
	Entities     int        `json:"entities"`
	Associations int        `json:"associations"`
	Size         int        `json:"size"`
	Live         bool       `json:"live"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// Create stores a new project holding an empty document, or the sample map.
func (s *Service) Create(ctx context.Context, sample bool) (*Project, error) {
	projectID := typeid.NewProjectID()
	doc := document.New()
	if sample {
		doc = document.NewSampleDocument()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if err := s.docs.Save(ctx, projectID, data); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return summarize(projectID, doc, len(data)), nil
}

func (s *Service) Get(ctx context.Context, projectID string) (*Project, error) {
	data, live, err := s.document(ctx, projectID)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("stored project %s: %w", projectID, err)
	}
	p := summarize(projectID, doc, len(data))
	p.Live = live
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]Project, error) {
	entries, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]Project, len(entries))
	for i, e := range entries {
		updated := e.UpdatedAt
		projects[i] = Project{ID: e.ProjectID, Size: e.Size, UpdatedAt: &updated}
		if s.live != nil {
			_, _, projects[i].Live = s.live.Document(e.ProjectID)
		}
	}
	return projects, nil
}

// Document returns the project's document JSON, preferring the live room copy.
func (s *Service) Document(ctx context.Context, projectID string) ([]byte, error) {
	data, _, err := s.document(ctx, projectID)
	return data, err
}

// Load implements the export loader.
func (s *Service) Load(ctx context.Context, projectID string) ([]byte, error) {
	return s.Document(ctx, projectID)
}

// Replace validates data and stores it as the project's document. Projects open in a
// room are refused; the room would overwrite the change on its next save.
func (s *Service) Replace(ctx context.Context, projectID string, data []byte) (*Project, error) {
	if s.live != nil {
		if _, _, open := s.live.Document(projectID); open {
			return nil, ErrLive
		}
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if err := s.docs.Save(ctx, projectID, canonical); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return summarize(projectID, doc, len(canonical)), nil
}

func (s *Service) document(ctx context.Context, projectID string) ([]byte, bool, error) {
	if s.live != nil {
		if data, _, ok := s.live.Document(projectID); ok {
			return data, true, nil
		}
	}
	data, err := s.docs.Load(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, false, fmt.Errorf("load project: %w", err)
	}
	return data, false, nil
}

func summarize(projectID string, doc *document.Document, size int) *Project {
	return &Project{
		ID:           projectID,
		Version:      doc.Version,
		Entities:     len(doc.Entities),
		Associations: len(doc.Associations),
		Size:         size,
	}
}
