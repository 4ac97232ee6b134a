package resgraph

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID    = errors.New("resgraph: duplicate node id")
	ErrUnknownID      = errors.New("resgraph: reference to unknown node id")
	ErrCycle          = errors.New("resgraph: edge would introduce a cycle")
	ErrNotParent      = errors.New("resgraph: id is not a parent (stage) node")
	ErrAfterFinish    = errors.New("resgraph: add_node called after finish_schedule drained the graph")
)

type Error struct {
	Kind error
	Op   string
	ID   uint64
}

func (e *Error) Error() string {
	return fmt.Sprintf("resgraph: %s: id %d: %v", e.Op, e.ID, e.Kind)
}

func (e *Error) Unwrap() error { return e.Kind }

func newErr(op string, id uint64, kind error) *Error {
	return &Error{Op: op, ID: id, Kind: kind}
}
