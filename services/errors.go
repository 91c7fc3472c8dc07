package services

import "errors"

// Error taxonomy for the XP core. Handlers map these onto HTTP statuses
// with errors.Is; services wrap them with context via fmt.Errorf("%w: ...").
var (
	// ErrInvalidAmount: delta rejected by validation (zero/negative without
	// the admin override, empty wallet or reference, unknown source).
	ErrInvalidAmount = errors.New("invalid xp amount")

	// ErrConflict: an idempotency key was reused with a different
	// delta/source. That is a caller bug, not a retry — it must surface,
	// never be merged into the existing ledger row.
	ErrConflict = errors.New("idempotency key conflict")

	// ErrNotFound: unknown wallet or submission.
	ErrNotFound = errors.New("record not found")

	// ErrState: illegal bounty-submission transition (moderating a
	// terminal submission, placing an unapproved one, placing twice).
	ErrState = errors.New("illegal state transition")

	// ErrStoreUnavailable: transient persistence failure. Callers may
	// retry; the idempotency key makes retries safe.
	ErrStoreUnavailable = errors.New("store unavailable")
)
