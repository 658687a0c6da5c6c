package document

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dDoc/lib/lockmgr"
)

// Error is a typed document failure. Compare with errors.Is against the sentinels below;
// the underlying cause (if any) stays reachable through errors.As.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

var (
	ErrAlreadyOpen         = &Error{"DOCUMENT_ALREADY_OPEN", "document is already open"}
	ErrClosePending        = &Error{"DOCUMENT_CLOSE_PENDING", "document is being closed"}
	ErrVersionIncompatible = &Error{"DOCUMENT_VERSION_INCOMPATIBLE", "stored data requires a newer schema"}
	ErrSessionLocked       = &Error{"SESSION_LOCKED", "document is locked by another session"}
	ErrService             = &Error{"SERVICE_ERROR", "store request failed"}
	ErrNotOpen             = &Error{"DOCUMENT_NOT_OPEN", "document is not open"}
	ErrSchemaValidation    = &Error{"SCHEMA_VALIDATION_ERROR", "data failed schema validation"}
	ErrMigrations          = &Error{"MIGRATIONS_ERROR", "migration failed"}
	ErrUnstorable          = &Error{"UNSTORABLE_DATA_ERROR", "data cannot be stored"}
	ErrTransformation      = &Error{"TRANSFORMATION_ERROR", "transformation failed"}
	ErrMustBeClosed        = &Error{"DOCUMENT_MUST_BE_CLOSED", "document must be closed"}
	ErrAlreadyClosed       = &Error{"DOCUMENT_ALREADY_CLOSED", "document is already closed"}
	ErrNotSupported        = &Error{"NON_SESSION_LOCKING_DOCUMENT_NOT_SUPPORTED", "operation requires session locking"}
	ErrUnknown             = &Error{"UNKNOWN", "unexpected failure"}
)

// Code returns the code of the document error in err's chain, or "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var docErr *Error
	if errors.As(err, &docErr) {
		return docErr.Code
	}
	return ErrUnknown.Code
}

// fail attaches a cause to a sentinel
func fail(sentinel *Error, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// classify maps lower layer failures to document errors
func classify(err error) error {
	var docErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &docErr):
		return err
	case errors.Is(err, lockmgr.ErrAlreadyLocked), errors.Is(err, lockmgr.ErrNotOwned):
		return fail(ErrSessionLocked, err)
	default:
		// store faults and exhausted budgets after the last retry
		return fail(ErrService, err)
	}
}
