package document

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField    = errors.New("missing required field")
	ErrUnknownType     = errors.New("unknown type")
	ErrDuplicateUUID   = errors.New("duplicate uuid")
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrBadVector       = errors.New("vector must have two numbers")
	ErrNotConnectable  = errors.New("pen stroke cannot be an endpoint")
)

// Validate checks required fields and references. Every violation is reported, joined.
func (d *Document) Validate() error {
	var errs []error
	seen := make(map[string]Type, len(d.Entities)+len(d.Associations))

	for i, e := range d.Entities {
		at := func(err error, field string) error {
			return fmt.Errorf("entity %d (%s): %w: %s", i, e.UUID, err, field)
		}
		if e.UUID == "" {
			errs = append(errs, at(ErrMissingField, "uuid"))
		} else if _, dup := seen[e.UUID]; dup {
			errs = append(errs, at(ErrDuplicateUUID, "uuid"))
		} else {
			seen[e.UUID] = e.Type
		}
		if e.Type == "" {
			errs = append(errs, at(ErrMissingField, "type"))
		} else if !e.Type.IsEntity() {
			errs = append(errs, at(ErrUnknownType, string(e.Type)))
		}
		switch {
		case e.Location == nil:
			errs = append(errs, at(ErrMissingField, "location"))
		case len(e.Location) != 2:
			errs = append(errs, at(ErrBadVector, "location"))
		}
		if field, ok := requiredField(e); !ok {
			errs = append(errs, at(ErrMissingField, field))
		}
		for _, v := range []struct {
			name string
			xs   []float64
		}{{"size", e.Size}, {"targetLocation", e.TargetLocation}} {
			if v.xs != nil && len(v.xs) != 2 {
				errs = append(errs, at(ErrBadVector, v.name))
			}
		}
	}

	for i, e := range d.Entities {
		for _, c := range e.Children {
			if _, ok := seen[c]; !ok {
				errs = append(errs, fmt.Errorf("entity %d (%s): child %s: %w", i, e.UUID, c, ErrUnknownEndpoint))
			}
		}
	}

	for i, a := range d.Associations {
		at := func(err error, field string) error {
			return fmt.Errorf("association %d (%s): %w: %s", i, a.UUID, err, field)
		}
		if a.UUID == "" {
			errs = append(errs, at(ErrMissingField, "uuid"))
		} else if _, dup := seen[a.UUID]; dup {
			errs = append(errs, at(ErrDuplicateUUID, "uuid"))
		} else {
			seen[a.UUID] = a.Type
		}
		var ends []string
		switch a.Type {
		case "":
			errs = append(errs, at(ErrMissingField, "type"))
		case TypeLineEdge, TypeCatmullRomEdge:
			if a.Source == "" {
				errs = append(errs, at(ErrMissingField, "source"))
			}
			if a.Target == "" {
				errs = append(errs, at(ErrMissingField, "target"))
			}
			ends = []string{a.Source, a.Target}
		case TypeMultiTargetEdge:
			if len(a.Targets) < 2 {
				errs = append(errs, at(ErrMissingField, "targets"))
			}
			ends = a.Targets
		default:
			errs = append(errs, at(ErrUnknownType, string(a.Type)))
		}
		for _, id := range ends {
			if id == "" {
				continue
			}
			t, ok := seen[id]
			switch {
			case !ok || !t.IsEntity():
				errs = append(errs, at(ErrUnknownEndpoint, id))
			case t == TypePenStroke:
				errs = append(errs, at(ErrNotConnectable, id))
			}
		}
	}
	return errors.Join(errs...)
}

// requiredField reports the type-specific field an entity must carry.
func requiredField(e Entity) (string, bool) {
	switch e.Type {
	case TypeTextNode:
		return "text", e.Text != nil
	case TypeImageNode:
		return "path", e.Path != nil
	case TypeUrlNode:
		return "url", e.URL != nil
	case TypePortalNode:
		return "portalFilePath", e.PortalFilePath != nil
	case TypePenStroke:
		return "content", e.Content != nil
	}
	return "", true
}
