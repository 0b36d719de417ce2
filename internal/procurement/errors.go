package procurement

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an operation failure so the transport layer can map it to a
// status code without string matching.
type Kind int

const (
	// KindInvalidArgument marks a request that failed validation.
	KindInvalidArgument Kind = iota
	// KindMaterialNotFound marks an unknown or unmapped material.
	KindMaterialNotFound
	// KindSupplierNotFound marks a supplier id absent from the material's pool.
	KindSupplierNotFound
	// KindDataCorrupt marks unreadable or invalid catalog data.
	KindDataCorrupt
	// KindOverloaded marks a simulated upstream overload. RetryAfter is set.
	KindOverloaded
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindMaterialNotFound:
		return "material_not_found"
	case KindSupplierNotFound:
		return "supplier_not_found"
	case KindDataCorrupt:
		return "data_corrupt"
	case KindOverloaded:
		return "overloaded"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every orchestrator operation.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// AsError extracts the typed error from err's chain, if present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
