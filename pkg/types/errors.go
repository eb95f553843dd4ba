package types

import "errors"

// Dispatch errors. These are returned synchronously by the submitting call;
// the continuation of a rejected task never runs.
var (
	ErrSaturated        = errors.New("dispatcher is saturated")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

// Handle lifecycle errors.
var (
	ErrClosed     = errors.New("database is closed")
	ErrFinalized  = errors.New("statement is finalized")
	ErrHandleBusy = errors.New("handle has an operation in flight")
	// ErrNotPrepared is returned by accessors on a statement whose prepare
	// never ran, because it was abandoned before a worker picked it up.
	ErrNotPrepared = errors.New("statement was not prepared")
)

// ErrUnsupportedType is returned when a value offered for binding matches none
// of the supported kinds. The statement's existing bindings are left intact.
var ErrUnsupportedType = errors.New("unsupported object type")

// EngineError is a non-success engine status paired with the engine's
// diagnostic message, as read from the connection right after the failure.
type EngineError struct {
	Code    Code
	Message string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}
