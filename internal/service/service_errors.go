package service

import "errors"

// ErrIdempotencyConflict means a unique-key race was detected but the
// winner's row could not be found on re-lookup. Callers should treat it as
// exceptional rather than retryable.
var ErrIdempotencyConflict = errors.New("idempotency conflict: concurrent request won the race but its row is not visible")
