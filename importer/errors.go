package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsuccessful is returned when the upstream envelope carries success=false
	// or no entry for the requested id.
	ErrUnsuccessful     = errors.New("upstream reported unsuccessful lookup")
	ErrMalformedPayload = errors.New("malformed upstream payload")
	ErrNoGeneratedKey   = errors.New("insert returned no generated key")
)

// FetchError describes a failed upstream lookup. StatusCode is zero when the
// request never produced an HTTP response.
type FetchError struct {
	AppID      int
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("fetch app %d: status %d: %v", e.AppID, e.StatusCode, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch app %d: status %d", e.AppID, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("fetch app %d: %v", e.AppID, e.Cause)
	default:
		return fmt.Sprintf("fetch app %d failed", e.AppID)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// PersistError wraps a database failure for one app id with the step that failed.
type PersistError struct {
	AppID int
	Op    string
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist app %d: %s: %v", e.AppID, e.Op, e.Cause)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}

func newPersistError(appID int, op string, cause error) *PersistError {
	return &PersistError{AppID: appID, Op: op, Cause: cause}
}
