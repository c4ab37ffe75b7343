package undo

import (
	"errors"
	"fmt"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/store"
)

var (
	// ErrNothingToReplay is returned by Undo or Redo when the stack is empty.
	// It is a user-level condition, not a failure.
	ErrNothingToReplay = errors.New("nothing to replay")

	// ErrOldStateInconsistent indicates the store no longer holds the state an
	// action expects to replace. The action log and the store have drifted apart.
	ErrOldStateInconsistent = errors.New("old state inconsistent")

	// ErrBlockNotFound indicates an action refers to a block that is not in the store.
	ErrBlockNotFound = errors.New("block not found")
)

// BlockNotFoundError carries the id an action could not locate.
type BlockNotFoundError struct {
	ID block.ID
}

func (e *BlockNotFoundError) Error() string {
	return fmt.Sprintf("block %d not found", e.ID)
}

func (e *BlockNotFoundError) Unwrap() error {
	return ErrBlockNotFound
}

// Severity groups replay errors by who has to act on them.
type Severity int

const (
	// SeverityNone is the severity of a nil error.
	SeverityNone Severity = iota
	// SeverityUser is a transient notice for the user, editing continues.
	SeverityUser
	// SeverityProgrammer means the log and the store are out of sync. Log it loudly.
	SeverityProgrammer
	// SeverityUnknown is anything else.
	SeverityUnknown
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityUser:
		return "user"
	case SeverityProgrammer:
		return "programmer"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by this package to its severity.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeverityNone
	case errors.Is(err, ErrNothingToReplay):
		return SeverityUser
	case errors.Is(err, ErrOldStateInconsistent),
		errors.Is(err, ErrBlockNotFound),
		errors.Is(err, store.ErrPositionOutOfRange),
		errors.Is(err, store.ErrDuplicateID):
		return SeverityProgrammer
	default:
		return SeverityUnknown
	}
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOldStateInconsistent, fmt.Sprintf(format, args...))
}
