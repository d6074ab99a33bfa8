package agent

import "errors"

var (
	ErrBusy   = errors.New("a query is already in progress")
	ErrClosed = errors.New("session closed")
)

type State int

const (
	StateIdle State = iota
	StateDispatching
	StateParsing
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateParsing:
		return "parsing"
	case StateExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// ExecutionState is reset at the start of every query.
type ExecutionState struct {
	InFlight            bool
	AutoInteractEnabled bool
}
