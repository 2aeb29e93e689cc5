// Package history keeps undo/redo state for a stage as a base snapshot plus a chain of
// JSON Patch deltas between consecutive snapshots.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// DefaultCapacity is the number of deltas kept before the oldest is folded into the base.
const DefaultCapacity = 20

var (
	ErrCannotRestore = errors.New("cannot restore this step")
	ErrOutOfRange    = errors.New("history index out of range")
)

// Codec turns the live stage into a snapshot and back.
type Codec interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

// Manager records steps for one stage. It is not safe for concurrent use; callers run it
// on the same goroutine that mutates the stage.
type Manager struct {
	codec    Codec
	capacity int

	base   []byte
	deltas [][]byte
	// index points into deltas; -1 is the base snapshot.
	index int
	// head is the reconstruction at index, kept so Record does not replay every time.
	head []byte
}

// New snapshots the current stage as the base state.
func New(codec Codec, capacity int) (*Manager, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Manager{codec: codec, capacity: capacity, index: -1}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) reset() error {
	snap, err := m.codec.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot stage: %w", err)
	}
	historyDeltas.Sub(float64(len(m.deltas)))
	m.base = snap
	m.head = snap
	m.deltas = nil
	m.index = -1
	return nil
}

// Record diffs the stage against the current step. It reports false when nothing changed.
// Steps after the current index are discarded.
func (m *Manager) Record() (bool, error) {
	snap, err := m.codec.Snapshot()
	if err != nil {
		return false, fmt.Errorf("snapshot stage: %w", err)
	}
	patch, err := jsondiff.CompareJSON(m.head, snap)
	if err != nil {
		return false, fmt.Errorf("diff stage: %w", err)
	}
	if len(patch) == 0 {
		return false, nil
	}
	delta, err := json.Marshal(patch)
	if err != nil {
		return false, fmt.Errorf("encode delta: %w", err)
	}

	// Fold down to capacity on a copy; m is only updated once every fold succeeded.
	deltas := append(m.deltas[:m.index+1:m.index+1], delta)
	base := m.base
	folds := 0
	for len(deltas) > m.capacity {
		next, err := apply(base, deltas[0])
		if err != nil {
			return false, fmt.Errorf("fold history: %w", err)
		}
		base = next
		deltas = deltas[1:]
		folds++
	}

	historyDeltas.Add(float64(len(deltas) - len(m.deltas)))
	m.base = base
	m.deltas = deltas
	m.index = len(deltas) - 1
	m.head = snap
	historyRecords.Inc()
	historyFolds.Add(float64(folds))
	historyDeltaBytes.Observe(float64(len(delta)))
	return true, nil
}

// Undo steps back once. At the base it does nothing and reports false.
func (m *Manager) Undo() (bool, error) {
	if !m.CanUndo() {
		return false, nil
	}
	return true, m.moveTo(m.index - 1)
}

// Redo steps forward once. At the newest step it does nothing and reports false.
func (m *Manager) Redo() (bool, error) {
	if !m.CanRedo() {
		return false, nil
	}
	return true, m.moveTo(m.index + 1)
}

func (m *Manager) moveTo(index int) error {
	data, err := m.Get(index)
	if err != nil {
		historyRestoreFailures.Inc()
		return err
	}
	if err := m.codec.Restore(data); err != nil {
		historyRestoreFailures.Inc()
		return fmt.Errorf("%w: step %d: %w", ErrCannotRestore, index, err)
	}
	m.index = index
	m.head = data
	return nil
}

// Get reconstructs the snapshot at index by replaying deltas onto a copy of the base.
// Index -1 is the base itself. Stored state is never modified.
func (m *Manager) Get(index int) ([]byte, error) {
	if index < -1 || index >= len(m.deltas) {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	doc := bytes.Clone(m.base)
	for i := 0; i <= index; i++ {
		next, err := apply(doc, m.deltas[i])
		if err != nil {
			slog.Warn("history replay failed", "step", i, "error", err)
			return nil, fmt.Errorf("%w: step %d: %w", ErrCannotRestore, i, err)
		}
		doc = next
	}
	return doc, nil
}

func apply(doc, delta []byte) ([]byte, error) {
	patch, err := jsonpatch.DecodePatch(delta)
	if err != nil {
		return nil, err
	}
	return patch.Apply(doc)
}

// Clear makes the current stage the new base and forgets every step.
func (m *Manager) Clear() error {
	return m.reset()
}

// Close releases the deltas from the shared gauge.
func (m *Manager) Close() {
	historyDeltas.Sub(float64(len(m.deltas)))
	m.deltas = nil
	m.index = -1
	m.head = m.base
}

func (m *Manager) Len() int      { return len(m.deltas) }
func (m *Manager) Index() int    { return m.index }
func (m *Manager) Capacity() int { return m.capacity }
func (m *Manager) CanUndo() bool { return m.index >= 0 }
func (m *Manager) CanRedo() bool { return m.index < len(m.deltas)-1 }
