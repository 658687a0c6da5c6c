package lockmgr

import (
	"strings"

	"github.com/google/uuid"
)

const (
	lockKeySuffix    = "-lockSession"
	sessionSeparator = "::"
)

// LockKey returns the registry key guarding the document key
func LockKey(key string) string {
	return key + lockKeySuffix
}

// newSessionID creates a new unique session id of the form "<lockKey>::<uuid>"
func newSessionID(lockKey string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return lockKey + sessionSeparator + id.String(), nil
}

// SessionLockKey extracts the lock key a session id was issued for.
func SessionLockKey(sessionID string) (string, bool) {
	i := strings.LastIndex(sessionID, sessionSeparator)
	if i < 0 {
		return "", false
	}
	if _, err := uuid.Parse(sessionID[i+len(sessionSeparator):]); err != nil {
		return "", false
	}
	return sessionID[:i], true
}
