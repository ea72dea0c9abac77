// Package probe implements the measurement and persistence engine: the
// probe-worker scheduler, the nonce-protected configuration/addr-index/
// sample-log triad, the fixed-layout binary sample store, the range-query
// reader, and the live-broadcast fan-out.
package probe

import (
	"errors"
	"fmt"
)

// FileOp identifies the operation that failed for a file-backed resource.
type FileOp int

const (
	OpOpen FileOp = iota
	OpRead
	OpMetadata
	OpWrite
	OpParse
)

func (op FileOp) String() string {
	switch op {
	case OpOpen:
		return "open"
	case OpRead:
		return "read"
	case OpMetadata:
		return "get metadata for"
	case OpWrite:
		return "write"
	case OpParse:
		return "parse"
	default:
		return "access"
	}
}

// FileError wraps a failure on one of the manager's backing files.
type FileError struct {
	Kind string // "index", "data", or "options"
	Op   FileOp
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s file %q: %v", e.Op, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s file: %v", e.Op, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func indexFileIO(op FileOp, path string, err error) error {
	return &FileError{Kind: "index", Op: op, Path: path, Err: err}
}

func dataFileIO(op FileOp, path string, err error) error {
	return &FileError{Kind: "data", Op: op, Path: path, Err: err}
}

func optionsFileIO(op FileOp, path string, err error) error {
	return &FileError{Kind: "options", Op: op, Path: path, Err: err}
}

// ErrInvalidAddrArgument is returned when an Options update references an
// AddrId not present in the AddrIndex.
var ErrInvalidAddrArgument = errors.New("options referenced an unknown address id")

// ErrNonceConflict is returned when a mutating or range-query request
// carries a stale nonce.
var ErrNonceConflict = errors.New("nonce conflict: options changed concurrently")

// ErrSocketNotAvail is returned by the Broadcaster when no live transport is
// registered yet.
var ErrSocketNotAvail = errors.New("broadcast socket not available")

// IsParseError reports whether err is a FileError carrying OpParse, which
// lets callers distinguish a corrupt on-disk file from a transient I/O
// failure (spec: parse errors terminate the request, later requests may
// still succeed if the log was concurrently extended to a valid size).
func IsParseError(err error) bool {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Op == OpParse
	}
	return false
}
