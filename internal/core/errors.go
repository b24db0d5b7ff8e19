package core

import (
	"errors"
	"fmt"
)

// ErrInvalidIndex is returned when the index document does not have the expected shape.
var ErrInvalidIndex = errors.New("invalid index")

// IndexError describes why an index document was rejected.
type IndexError struct {
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("invalid index: %s", e.Reason)
}

func (e *IndexError) Unwrap() error {
	return ErrInvalidIndex
}

// EntryError records an index entry that could not be decoded.
type EntryError struct {
	Position int
	Err      error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Position, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
