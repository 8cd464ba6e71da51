package repository

// Logical keys held by every store backend.
const (
	KeyDirectory     = "directory"
	KeyLedger        = "ledger"
	keySessionPrefix = "session:"
)

// SessionKey namespaces a session principal by its session id.
func SessionKey(sessionID string) string {
	return keySessionPrefix + sessionID
}
