package serializer

import (
	"fmt"
	"strconv"
	"strings"
)

type decoder struct {
	reg      *Registry
	extra    any
	nodes    map[string]any
	built    map[string]any
	building map[string]bool
}

// Deserialize rebuilds the graph written by Serialize. extra is forwarded to
// constructors of classes registered with Extra set.
//
// It runs in two passes: the first indexes every node of the tree by path, the second
// builds objects on demand and memoizes them by path, so every reference marker resolves
// to the live instance built for its target. The input tree is not modified.
func (r *Registry) Deserialize(tree any, extra any) (any, error) {
	d := &decoder{
		reg:      r,
		extra:    extra,
		nodes:    make(map[string]any),
		built:    make(map[string]any),
		building: make(map[string]bool),
	}
	d.index(tree, "")
	return d.build("")
}

func (d *decoder) index(v any, path string) {
	d.nodes[path] = v
	switch x := v.(type) {
	case []any:
		for i, item := range x {
			d.index(item, path+"/"+strconv.Itoa(i))
		}
	case map[string]any:
		if _, ok := refOf(x); ok {
			return
		}
		for k, item := range x {
			if k == ClassKey {
				continue
			}
			d.index(item, path+"/"+k)
		}
	}
}

func refOf(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	raw, ok := m[RefKey]
	if !ok {
		return "", false
	}
	p, _ := raw.(string)
	return p, true
}

func (d *decoder) build(path string) (any, error) {
	if v, ok := d.built[path]; ok {
		return v, nil
	}
	if d.building[path] {
		return nil, atPath(path, ErrReferenceCycle)
	}
	raw, ok := d.nodes[path]
	if !ok {
		return nil, atPath(path, ErrBadReference)
	}

	switch x := raw.(type) {
	case []any:
		out := make([]any, len(x))
		d.built[path] = out
		for i := range x {
			v, err := d.build(path + "/" + strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case map[string]any:
		if target, isRef := refOf(x); isRef {
			return d.resolve(path, target)
		}
		if name, isClass := x[ClassKey]; isClass {
			return d.buildObject(path, name, x)
		}
		out := make(map[string]any, len(x))
		d.built[path] = out
		for k := range x {
			v, err := d.build(path + "/" + k)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	default:
		return raw, nil
	}
}

func (d *decoder) resolve(path, target string) (any, error) {
	if target != "" && !strings.HasPrefix(target, "/") {
		return nil, atPath(path, fmt.Errorf("%w: %q", ErrBadReference, target))
	}
	if _, ok := d.nodes[target]; !ok {
		return nil, atPath(path, fmt.Errorf("%w: %q", ErrBadReference, target))
	}
	if target == path || strings.HasPrefix(path, target+"/") || target == "" {
		return nil, atPath(path, fmt.Errorf("%w: %q", ErrReferenceCycle, target))
	}

	d.building[path] = true
	v, err := d.build(target)
	delete(d.building, path)
	if err != nil {
		return nil, err
	}
	d.built[path] = v
	return v, nil
}

func (d *decoder) buildObject(path string, rawName any, node map[string]any) (any, error) {
	name, _ := rawName.(string)
	s, ok := d.reg.schemaNamed(name)
	if !ok {
		return nil, atPath(path, fmt.Errorf("%w: %q", ErrClassNotFound, name))
	}

	d.building[path] = true
	defer delete(d.building, path)

	args := make([]any, len(s.fields))
	bag := make(map[string]any, len(s.fields))
	for i, field := range s.fields {
		if _, present := node[field]; !present {
			continue
		}
		v, err := d.build(path + "/" + field)
		if err != nil {
			return nil, err
		}
		args[i] = v
		bag[field] = v
	}

	obj, err := s.build(args, bag, d.extra)
	if err != nil {
		return nil, atPath(path, fmt.Errorf("construct %s: %w", s.name, err))
	}
	d.built[path] = obj
	return obj, nil
}
