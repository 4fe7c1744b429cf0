package store

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aryannaik/cellar/internal/wine"
)

var (
	// ErrMalformed means a backend returned content that is not a JSON array
	// of wines. It is never recovered from.
	ErrMalformed = errors.New("dataset document is malformed")

	// ErrMissingToken is returned when a remote save is attempted without the
	// version token from a prior Load.
	ErrMissingToken = errors.New("version token required for remote save")

	// ErrConflict matches any *ConflictError.
	ErrConflict = errors.New("dataset changed since it was loaded")

	// ErrRemoteDisabled is returned by operations that need the remote backend.
	ErrRemoteDisabled = errors.New("remote backend not configured")
)

// ConflictError reports a rejected remote write. Current and Token hold the
// authoritative content at the time of rejection so the caller can retry.
// Current is nil when the follow-up read failed as well.
type ConflictError struct {
	DatasetID string
	Current   wine.Dataset
	Token     string
	Err       error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dataset %s: %v", e.DatasetID, e.Err)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }
