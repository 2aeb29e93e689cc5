package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	"github.com/graphif/stagecore/internal/document"
)

var ErrEmptyPatch = errors.New("patch has no operations")

// DocumentState holds the authoritative document of a room. Every accepted patch bumps
// seq; the document is dirty until a save at the current seq is acknowledged.
type DocumentState struct {
	mu       sync.RWMutex
	doc      []byte
	seq      int64
	savedSeq int64
}

// NewDocumentState validates data and takes it as the room's initial document.
func NewDocumentState(data []byte) (*DocumentState, error) {
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	// Patches append with "/entities/-", so the arrays must exist.
	if doc.Entities == nil {
		doc.Entities = []document.Entity{}
	}
	if doc.Associations == nil {
		doc.Associations = []document.Association{}
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return &DocumentState{doc: canonical}, nil
}

// Snapshot returns the current document and its sequence number.
func (ds *DocumentState) Snapshot() ([]byte, int64) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return slices.Clone(ds.doc), ds.seq
}

func (ds *DocumentState) Dirty() bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.seq != ds.savedSeq
}

// MarkSaved records that the document at seq reached the store.
func (ds *DocumentState) MarkSaved(seq int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.savedSeq = max(ds.savedSeq, seq)
}

// ApplyPatch applies ops to the document. The result must still be a valid document;
// otherwise the document is left unchanged.
func (ds *DocumentState) ApplyPatch(ops json.RawMessage) (int64, error) {
	patch, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return 0, fmt.Errorf("decode patch: %w", err)
	}
	if len(patch) == 0 {
		return 0, ErrEmptyPatch
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	next, err := patch.Apply(ds.doc)
	if err != nil {
		return 0, fmt.Errorf("apply patch: %w", err)
	}
	if _, err := document.Parse(next); err != nil {
		return 0, fmt.Errorf("patched document: %w", err)
	}
	ds.doc = next
	ds.seq++
	return ds.seq, nil
}

// Diff returns the patch that turns before into after.
func Diff(before, after []byte) (json.RawMessage, error) {
	patch, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, fmt.Errorf("diff documents: %w", err)
	}
	if patch == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(patch)
}
