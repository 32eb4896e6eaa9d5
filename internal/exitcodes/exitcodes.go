package exitcodes

import (
	"errors"

	"xcleanup/internal/config"
	"xcleanup/internal/safety"
	"xcleanup/internal/state"
)

// Exit codes for xcleanup
// These codes form the operational contract with CI/CD and operators
const (
	Success         = 0 // Successful execution, including a cancelled or empty run
	InvalidConfig   = 2 // Configuration file invalid or missing
	SafetyViolation = 3 // A configured root is itself protected
	RuntimeError    = 4 // Runtime error during execution
	StorageError    = 5 // Cleanup state ledger could not be read or written
	PartialFailure  = 6 // Some items failed and --fail-on-errors was given
)

// FromError maps a run error to its exit code.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, config.ErrInvalidConfig):
		return InvalidConfig
	case errors.Is(err, safety.ErrProtectedPath):
		return SafetyViolation
	case errors.Is(err, state.ErrStorage):
		return StorageError
	default:
		return RuntimeError
	}
}
