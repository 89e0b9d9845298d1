package orchestrator

// OrchestratorError means both chain stages failed. Its message is the
// PRIMARY-stage cause: the fallback error is usually a bland gate failure,
// while the primary error says what actually broke first.
type OrchestratorError struct {
	primary  error
	fallback error
}

func (e *OrchestratorError) Error() string { return e.primary.Error() }

// Unwrap exposes the primary cause to errors.Is/As.
func (e *OrchestratorError) Unwrap() error { return e.primary }

// Fallback returns the fallback-stage error, for logging.
func (e *OrchestratorError) Fallback() error { return e.fallback }

// ErrChain constructs an OrchestratorError.
func ErrChain(primary, fallback error) error {
	return &OrchestratorError{primary: primary, fallback: fallback}
}

// IsChainFailure reports whether err means both stages failed.
func IsChainFailure(err error) bool {
	_, ok := err.(*OrchestratorError)
	return ok
}
