package cli

import (
	"errors"
	"fmt"

	"daylist-cli/internal/mutate"
	"daylist-cli/internal/session"
	"daylist-cli/internal/storage"
)

// Exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 3
	ExitRejected = 4
)

type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case mutate.IsNotFound(err), storage.IsNotFound(err):
		return ExitNotFound
	case errors.As(err, &ue), errors.Is(err, mutate.ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, mutate.ErrNoop), errors.Is(err, mutate.ErrChildrenOpen), errors.Is(err, mutate.ErrInvalidMove):
		return ExitRejected
	default:
		return ExitFailure
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, mutate.ErrNoop):
		return "nothing to do (" + err.Error() + ")"
	case errors.Is(err, session.ErrNoWorkspace):
		return err.Error() + "; run `daylist ws create <name>`"
	default:
		return err.Error()
	}
}
