package cli

import "fmt"

// Exit codes returned through ExitError.
const (
	ExitThreshold = 1
	ExitUsage     = 2
)

// ExitError carries process exit code for command-specific failures.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit with code %d", e.Code)
	}
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}
