package store

import "github.com/google/uuid"

// Namespace for mapping external platform identifiers (telegram user/chat/
// message ids) to stable UUID-shaped tokens. Must never change: memory ids
// derived from it are persisted across snapshots.
var externalIDNamespace = uuid.MustParse("2f1fb104-5b50-4a27-a348-13f4c5d7a0be")

// StringToUUID maps an arbitrary external identifier to a deterministic
// UUID string. Equal inputs always yield equal outputs.
func StringToUUID(s string) string {
	return uuid.NewSHA1(externalIDNamespace, []byte(s)).String()
}

// NewID returns a fresh random entity id.
func NewID() string {
	return uuid.NewString()
}
