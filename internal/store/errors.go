package store

// unknownSessionError signals a referential-integrity violation: a message
// append referenced a session that does not exist (400 mapping).
type unknownSessionError struct{ id string }

func (e unknownSessionError) Error() string { return "unknown session: " + e.id }

// ErrUnknownSession constructs an unknownSessionError.
func ErrUnknownSession(id string) error { return unknownSessionError{id: id} }

// IsUnknownSession reports whether err indicates a missing session.
func IsUnknownSession(err error) bool {
	_, ok := err.(unknownSessionError)
	return ok
}
