// Package store persists interop documents, one per project.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("invalid project id")
)

// Entry describes a stored document without its content.
type Entry struct {
	ProjectID string    `json:"projectId"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DocumentStore maps project ids to document JSON.
type DocumentStore interface {
	Load(ctx context.Context, projectID string) ([]byte, error)
	// Save replaces the project's document, creating it if needed.
	Save(ctx context.Context, projectID string, data []byte) error
	List(ctx context.Context) ([]Entry, error)
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// CheckID rejects ids that could not be used as a file name.
func CheckID(projectID string) error {
	if !validID.MatchString(projectID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, projectID)
	}
	return nil
}
