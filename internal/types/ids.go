package types

import (
	"time"

	"github.com/google/uuid"
)

// NewEntryID generates a UUIDv7 journal entry identifier.
// Time-ordered IDs keep history listings in insertion order.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewEntryID() EntryID {
	return EntryID(uuid.Must(uuid.NewV7()).String())
}

// ParseEntryID validates and converts a string to EntryID.
// Rejects malformed UUIDs so undo never runs a lookup with garbage input.
func ParseEntryID(s string) (EntryID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return EntryID(s), nil
}

// EntryIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func EntryIDTime(id EntryID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
