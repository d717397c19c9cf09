package generator

import (
	"errors"
	"fmt"
)

// Set of errors a search can report directly.
var (
	ErrEmptyPattern = errors.New("please provide at least a prefix or suffix")
	ErrNoDevice     = errors.New("No compatible GPU devices found")
)

// InvalidPatternError reports a prefix or suffix that cannot appear in a base58 address.
type InvalidPatternError struct {
	Field string // "prefix" or "suffix"
	Char  rune   // Offending character, zero when the pattern is too long
	Pos   int    // Rune position of the offending character
}

func (e *InvalidPatternError) Error() string {
	if e.Char == 0 {
		return fmt.Sprintf("%s is too long: an address has at most %d characters", e.Field, e.Pos)
	}
	return fmt.Sprintf("invalid base58 character %q at position %d in %s", e.Char, e.Pos, e.Field)
}

// InvalidRequestError wraps a request that failed struct validation.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Err.Error()
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was caused by bad user input. Such errors are
// raised before any device is touched.
func IsValidation(err error) bool {
	var pe *InvalidPatternError
	var re *InvalidRequestError
	return errors.Is(err, ErrEmptyPattern) || errors.As(err, &pe) || errors.As(err, &re)
}

// BuildError reports that the specialized program could not be compiled. It aborts the
// whole run.
type BuildError struct {
	Device string
	Log    string // Compiler build log, when available
	Err    error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("program build failed on %s: %v", e.Device, e.Err)
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// DispatchError reports a failed compute call for one device in one round. The round
// continues with the remaining devices.
type DispatchError struct {
	Device string
	Chunk  int
	Code   int // Native status code, 0 when not applicable
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("dispatch on %s (chunk %d) failed with code %d: %v", e.Device, e.Chunk, e.Code, e.Err)
	}
	return fmt.Sprintf("dispatch on %s (chunk %d) failed: %v", e.Device, e.Chunk, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// PersistError reports a keypair that was found but could not be written to disk.
type PersistError struct {
	Address string
	Path    string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("saving keypair %s to %s: %v", e.Address, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
