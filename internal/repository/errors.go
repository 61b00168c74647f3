package repository

import "errors"

// ErrNotFound is returned by LocalStorage.Get when the key has no value.
// Callers treat it as "nothing stored yet" rather than a failure.
var ErrNotFound = errors.New("repository: not found")
