// Package errs holds the failure kinds of a bootstrap run. Every error
// returned by the mongo and ingest packages wraps exactly one of these
// sentinels, so callers branch with errors.Is while the message keeps the
// driver's own text.
package errs

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicateResource = errors.New("duplicate resource")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrIO                = errors.New("io error")
	ErrParse             = errors.New("parse error")
	ErrSchemaViolation   = errors.New("schema violation")
	ErrBulkInsert        = errors.New("bulk insert failed")
	ErrDuplicateKey      = errors.New("duplicate key")
)

// Server error codes the bootstrap cares about.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
	codeDuplicateKey         = 11000
	codeUserExists           = 51003
)

// InsertError reports a failed bulk write together with how many records
// made it into the collection before the fault.
type InsertError struct {
	Collection string
	Inserted   int
	Total      int
	Err        error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert into %s: %d of %d records written: %v",
		e.Collection, e.Inserted, e.Total, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// wrapped joins a sentinel with the underlying cause.
type wrapped struct {
	kind  error
	cause error
}

func (w *wrapped) Error() string   { return w.kind.Error() + ": " + w.cause.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.kind, w.cause} }

// Wrap tags cause with kind. A nil cause yields nil.
func Wrap(kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &wrapped{kind: kind, cause: cause}
}

// IsPermission reports whether err is an authorization failure from the server.
func IsPermission(err error) bool {
	return hasCode(err, codeUnauthorized, codeAuthenticationFailed)
}

// IsUserExists reports whether err is the server rejecting a createUser for
// a name that is already taken.
func IsUserExists(err error) bool {
	return hasCode(err, codeUserExists, codeDuplicateKey)
}

// ClassifyCommand maps an administrative command failure to a sentinel.
func ClassifyCommand(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUserExists(err):
		return Wrap(ErrDuplicateResource, err)
	case IsPermission(err):
		return Wrap(ErrPermissionDenied, err)
	}
	return err
}

// ClassifyWrite maps a bulk write failure to a sentinel.
func ClassifyWrite(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return Wrap(ErrDuplicateKey, err)
	case IsPermission(err):
		return Wrap(ErrPermissionDenied, err)
	}
	return Wrap(ErrBulkInsert, err)
}

func hasCode(err error, codes ...int) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.HasErrorCode(c) {
			return true
		}
	}
	return false
}
