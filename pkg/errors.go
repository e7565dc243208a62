package sdexport

import (
	"errors"
	"fmt"
)

var (
	errSourceClosed = errors.New("event source is closed")
	errOutOfRange   = errors.New("position out of range")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrWriteFile represents an error when writing to an output file.
type ErrWriteFile struct {
	Filename string
	Err      error
}

func (e *ErrWriteFile) Error() string {
	return fmt.Sprintf("error writing file %q: %v", e.Filename, e.Err)
}

func (e *ErrWriteFile) Unwrap() error {
	return e.Err
}

// ErrReadEvent represents an error when reading an event from a source.
type ErrReadEvent struct {
	Position Position
	Err      error
}

func (e *ErrReadEvent) Error() string {
	return fmt.Sprintf("error reading event at position %d: %v", e.Position, e.Err)
}

func (e *ErrReadEvent) Unwrap() error {
	return e.Err
}
