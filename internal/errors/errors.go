package errors

import "errors"

// This package defines a centralized set of sentinel errors for the client.
// Services and the backend client wrap one of these with fmt.Errorf("%w: ...")
// so callers (the command layer, tests) can branch with errors.Is without
// knowing which layer produced the failure.

var (
	// ErrValidation signifies that input was rejected locally before any
	// request was made (empty message, out-of-range configuration value,
	// unsupported upload file).
	ErrValidation = errors.New("validation failed")

	// ErrNetwork signifies that the backend could not be reached: connection
	// refused, timeout, or a cancelled request context.
	ErrNetwork = errors.New("network error")

	// ErrServer signifies that the backend answered with a non-2xx status.
	// The concrete *backend.APIError carries the status and the server message.
	ErrServer = errors.New("server error")

	// ErrParse signifies that a payload could not be decoded. Parse failures of
	// stored data (model_config, CSV rows) are replaced by safe defaults and only
	// logged; this error surfaces for responses that are unusable as a whole.
	ErrParse = errors.New("parse error")

	// ErrNotFound signifies that the backend reported a missing resource (404).
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized signifies a 401/403 from the backend.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict signifies an operation that conflicts with local state, such
	// as a second send while one is already in flight for the same dialog.
	ErrConflict = errors.New("conflict")

	// ErrStale signifies that a response arrived for a selection (dialog, file,
	// chunk) that is no longer current. The response was discarded.
	ErrStale = errors.New("stale response discarded")
)
