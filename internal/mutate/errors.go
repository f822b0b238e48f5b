package mutate

import (
	"errors"
	"fmt"

	"daylist-cli/internal/model"
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

var (
	// ErrNoop means the operation was valid but had nothing to do (e.g. outdent at level 0).
	ErrNoop = errors.New("no-op")
	// ErrChildrenOpen rejects completing a todo while something below it is still open.
	ErrChildrenOpen = errors.New("cannot complete: child todos still open")
	// ErrInvalidMove rejects a reorder whose result would break the outline.
	ErrInvalidMove  = errors.New("invalid move")
	ErrInvalidInput = model.ErrInvalidInput
)

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
