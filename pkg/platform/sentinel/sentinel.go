package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors:
//   - ErrNotFound: no record for the key
//   - ErrExpired: the record outlived its TTL
//   - ErrAlreadyUsed: a one-shot resource (a capture session frame slot) was consumed
//   - ErrUnavailable: a backing service is temporarily unreachable
//
// Bad input is a validation concern; use pkg/domain-errors for that.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
