package manager

// modelUnavailableError signals that no model handle is ready (503 mapping).
type modelUnavailableError struct{ msg string }

func (e modelUnavailableError) Error() string { return e.msg }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(msg string) error { return modelUnavailableError{msg: msg} }

// IsModelUnavailable reports whether err indicates the model is not ready.
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// inferenceError wraps an engine-level failure (500 mapping, message passed through).
type inferenceError struct{ cause error }

func (e inferenceError) Error() string { return e.cause.Error() }
func (e inferenceError) Unwrap() error { return e.cause }

// ErrInference wraps an underlying engine failure.
func ErrInference(cause error) error {
	if cause == nil {
		return nil
	}
	return inferenceError{cause: cause}
}

// IsInference reports whether err is an engine-level inference failure.
func IsInference(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "too busy: completion queue is full" }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}
