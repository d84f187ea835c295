package rdt

import "fmt"

// ErrorKind classifies the hard failures a training run can report, matching
// the error kinds of the external interface this engine serves.
type ErrorKind int

const (
	// MalformedInput means a label image contains a label index >= NLabels.
	MalformedInput ErrorKind = iota
	// IncompatibleCheckpoint means a checkpoint can't be resumed into the
	// requested run: label count, FOV, or depth don't line up.
	IncompatibleCheckpoint
	// AlreadyComplete means a checkpoint has no unfinished frontier left.
	AlreadyComplete
	// InitFailure means the worker pool or its barriers failed to start.
	InitFailure
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedInput:
		return "malformed input"
	case IncompatibleCheckpoint:
		return "incompatible checkpoint"
	case AlreadyComplete:
		return "already complete"
	case InitFailure:
		return "init failure"
	default:
		return "unknown"
	}
}

// TrainError is the error type returned for every hard training failure.
// All of them are terminal: the caller should report Msg to stderr and
// exit 1.
type TrainError struct {
	Kind ErrorKind
	Msg  string
}

func (e *TrainError) Error() string {
	return e.Msg
}

// Is lets errors.Is(err, rdt.ErrAlreadyComplete) (and friends) match on kind
// alone, regardless of message.
func (e *TrainError) Is(target error) bool {
	other, ok := target.(*TrainError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...interface{}) *TrainError {
	return &TrainError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinel values for errors.Is comparisons; Is ignores Msg, only Kind is
// compared, so callers can still wrap these with more specific context.
var (
	ErrMalformedInput         = &TrainError{Kind: MalformedInput, Msg: "malformed input"}
	ErrIncompatibleCheckpoint = &TrainError{Kind: IncompatibleCheckpoint, Msg: "checkpoint is not compatible with this corpus"}
	ErrAlreadyComplete        = &TrainError{Kind: AlreadyComplete, Msg: "Tree already fully trained."}
	ErrInitFailure            = &TrainError{Kind: InitFailure, Msg: "failed to initialize worker pool"}
)
