package ledger

import "errors"

var (
	// ErrLedgerUnavailable wraps network, timeout, and server-side failures
	// of the intermediary. Callers must treat the submission as failed and
	// must not persist state that depends on it; the transaction may still
	// land on-chain later and surface through the event feed.
	ErrLedgerUnavailable = errors.New("ledger intermediary unavailable")

	ErrTxNotFound = errors.New("transaction not found")
)
