package serializer

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Marker keys used in serialized trees.
const (
	ClassKey = "_"
	RefKey   = "$"
)

type containerKey struct {
	kind reflect.Kind
	ptr  uintptr
	n    int
}

type encoder struct {
	reg        *Registry
	ids        map[string]string
	containers map[containerKey]string
	active     map[string]bool

	activeContainers map[containerKey]bool
	// pinned keeps folded containers alive so their addresses are not reused mid-call.
	pinned []any
}

// Serialize converts root into a tree of map[string]any, []any and scalars.
//
// The whole graph must go through a single call: identity is only tracked within one
// call, so objects serialized separately come back as distinct copies.
func (r *Registry) Serialize(root any) (any, error) {
	e := &encoder{
		reg:        r,
		ids:        make(map[string]string),
		containers: make(map[containerKey]string),
		active:     make(map[string]bool),

		activeContainers: make(map[containerKey]bool),
	}
	return e.encode(root, "")
}

// RoundNumber keeps integers and rounds everything else to two decimals.
func RoundNumber(f float64) float64 {
	if f == math.Trunc(f) {
		return f
	}
	return math.Round(f*100) / 100
}

func (e *encoder) encode(v any, path string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return x, nil
	case float64:
		return e.number(x, path)
	case float32:
		return e.number(float64(x), path)
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []any:
		return e.encodeSlice(x, path)
	case map[string]any:
		return e.encodeMap(x, path)
	}

	s, ok := e.reg.schemaFor(v)
	if !ok {
		return nil, atPath(path, fmt.Errorf("%w: %T", ErrUnsupportedType, v))
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	return e.encodeObject(s, v, path)
}

func (e *encoder) number(f float64, path string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, atPath(path, fmt.Errorf("%w: non-finite number", ErrUnsupportedType))
	}
	return RoundNumber(f), nil
}

func (e *encoder) encodeObject(s *schema, v any, path string) (any, error) {
	var id string
	if s.identity != "" {
		for i, name := range s.fields {
			if name == s.identity {
				id, _ = s.get(v, i).(string)
				break
			}
		}
	}
	if id != "" {
		if e.active[id] {
			return nil, atPath(path, fmt.Errorf("%w: %s %s", ErrReferenceCycle, s.name, id))
		}
		if first, seen := e.ids[id]; seen {
			return map[string]any{RefKey: first}, nil
		}
		e.ids[id] = path
		e.active[id] = true
		defer delete(e.active, id)
	}

	out := make(map[string]any, len(s.fields)+1)
	out[ClassKey] = s.name
	for i, name := range s.fields {
		fv, err := e.encode(s.get(v, i), path+"/"+name)
		if err != nil {
			return nil, err
		}
		out[name] = fv
	}
	return out, nil
}

func (e *encoder) enterContainer(kind reflect.Kind, v any, n int, path string) (marker map[string]any, leave func(), err error) {
	leave = func() {}
	if n == 0 {
		return nil, leave, nil
	}
	ptr := reflect.ValueOf(v).Pointer()
	if ptr == 0 {
		return nil, leave, nil
	}
	key := containerKey{kind: kind, ptr: ptr, n: n}
	if e.activeContainers[key] {
		return nil, leave, atPath(path, ErrReferenceCycle)
	}
	if first, seen := e.containers[key]; seen {
		return map[string]any{RefKey: first}, leave, nil
	}
	e.containers[key] = path
	e.activeContainers[key] = true
	e.pinned = append(e.pinned, v)
	return nil, func() { delete(e.activeContainers, key) }, nil
}

func (e *encoder) encodeSlice(xs []any, path string) (any, error) {
	marker, leave, err := e.enterContainer(reflect.Slice, xs, len(xs), path)
	if err != nil {
		return nil, err
	}
	if marker != nil {
		return marker, nil
	}
	defer leave()

	out := make([]any, len(xs))
	for i, x := range xs {
		v, err := e.encode(x, path+"/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *encoder) encodeMap(m map[string]any, path string) (any, error) {
	marker, leave, err := e.enterContainer(reflect.Map, m, len(m), path)
	if err != nil {
		return nil, err
	}
	if marker != nil {
		return marker, nil
	}
	defer leave()

	keys := make([]string, 0, len(m))
	for k := range m {
		if k == ClassKey || k == RefKey || strings.Contains(k, "/") {
			return nil, atPath(path, fmt.Errorf("%w: %q", ErrReservedKey, k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		v, err := e.encode(m[k], path+"/"+k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
