package xerrors

import (
	"errors"
	"fmt"
)

// Error kinds raised by the customer core. Callers branch on these with
// errors.Is and map them to their own transport status codes.
var (
	// ErrInvalidArgument means a malformed identifier or key type.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidData means malformed input (email, address) or a disallowed
	// wholesale metadata update.
	ErrInvalidData = errors.New("invalid data")

	// ErrNotFound means no matching record exists.
	ErrNotFound = errors.New("resource not found")

	// ErrNotAllowed means the operation is not permitted for the record's
	// current state.
	ErrNotAllowed = errors.New("operation not allowed")

	// ErrDB wraps an underlying store failure. The store's message is
	// carried through unmodified.
	ErrDB = errors.New("database error")

	// ErrRateLimited means the caller exceeded a request budget.
	ErrRateLimited = errors.New("too many requests")
)

// Wrap adds context to an error while keeping the chain intact.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// DB marks err as a store-level failure unless it already carries a kind
// from this package (a NOT_FOUND returned by the store stays a NOT_FOUND).
func DB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDB) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDB, err)
}

// InvalidArgument builds an INVALID_ARGUMENT error with a reason.
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidData builds an INVALID_DATA error with a reason.
func InvalidData(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, fmt.Sprintf(format, args...))
}

// NotAllowed builds a NOT_ALLOWED error with a reason.
func NotAllowed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotAllowed, fmt.Sprintf(format, args...))
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
