package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Repositories use it as the absence signal; it never reaches clients directly.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput marks client-correctable request problems.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized covers every credential failure: missing bearer, bad
	// signature, expired token, and stale issuance lineage. The reason is
	// deliberately not distinguishable to the client so a caller cannot
	// probe whether a signature check or a freshness check rejected it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired exists for internal logging only; the HTTP adapter
	// collapses it into the uniform unauthorized response.
	ErrTokenExpired = errors.New("token expired")
	// ErrConfigNotFound means every configuration tier missed.
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrStorageUnavailable signals the persistence layer is unreachable
	// or erroring. Handlers map it to 503 with a generic body.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
