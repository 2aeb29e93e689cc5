package serializer

import (
	"errors"
	"fmt"
)

var (
	// ErrClassNotFound is returned when a tree names a class that was never registered.
	ErrClassNotFound = errors.New("class not found")
	// ErrBadReference is returned for a reference marker whose path does not resolve.
	ErrBadReference = errors.New("malformed reference path")
	// ErrReferenceCycle is returned when an object is reachable from itself.
	ErrReferenceCycle = errors.New("reference cycle")
	// ErrUnsupportedType is returned when serializing a value with no encoding.
	ErrUnsupportedType = errors.New("unsupported value type")
	// ErrReservedKey is returned for plain maps using a key reserved for markers.
	ErrReservedKey = errors.New("reserved key in plain map")
	// ErrTypeMismatch is returned by the argument helpers.
	ErrTypeMismatch = errors.New("type mismatch")
)

// PathError records where in the tree an operation failed.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("serializer: %v at %s", e.Err, path)
}

func (e *PathError) Unwrap() error { return e.Err }

func atPath(path string, err error) error {
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Path: path, Err: err}
}
