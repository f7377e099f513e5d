package topology

import (
	"errors"
	"fmt"

	"github.com/stelzch/binary-tree-summation/treeindex"
)

// Sentinel errors for invalid-topology failures (spec kind: Invalid topology).
var (
	ErrEmptyArray        = errors.New("topology: global array is empty")
	ErrPartitionMismatch = errors.New("topology: regions do not partition [0, N)")
	ErrNoAnchor          = errors.New("topology: no region owns index 0 after canonicalization")
	ErrStackUnderflow    = errors.New("topology: op program underflows the evaluation stack")
)

// Error is the structured error surfaced by this package: a kind plus the
// context (stage, coordinate) needed to diagnose it, per the error handling
// design of the core specification.
type Error struct {
	Kind  string
	Stage string
	Coord treeindex.Coordinate
	Err   error
}

func (e *Error) Error() string {
	if e.Coord.Y == 0 && e.Coord.X == 0 {
		return fmt.Sprintf("topology: %s: %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("topology: %s: %s at (%d,%d): %v", e.Kind, e.Stage, e.Coord.X, e.Coord.Y, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(kind, stage string, err error) error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}
