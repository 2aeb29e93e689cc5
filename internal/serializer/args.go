package serializer

import (
	"encoding/json"
	"fmt"
)

// As converts a deserialized value to T. A nil value yields the zero T.
func As[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, zero, v)
	}
	return t, nil
}

// ListOf converts a deserialized []any to []T.
func ListOf[T any](v any) ([]T, error) {
	if v == nil {
		return nil, nil
	}
	xs, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: want list, got %T", ErrTypeMismatch, v)
	}
	out := make([]T, 0, len(xs))
	for i, x := range xs {
		t, err := As[T](x)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// List converts a typed slice for a field getter.
func List[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Float reads a number, treating absent values as zero.
func Float(v any) float64 {
	f, _ := v.(float64)
	return f
}

// String reads a string, treating absent values as empty.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Bool reads a boolean, treating absent values as false.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// Marshal serializes root and encodes the tree as JSON. encoding/json sorts object keys,
// so equal graphs produce identical bytes.
func (r *Registry) Marshal(root any) ([]byte, error) {
	tree, err := r.Serialize(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// Unmarshal decodes JSON and deserializes the tree.
func (r *Registry) Unmarshal(data []byte, extra any) (any, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return r.Deserialize(tree, extra)
}
