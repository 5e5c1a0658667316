package strata

import (
	"time"

	"github.com/google/uuid"
)

// chunkNamespace is the UUIDv5 namespace for deterministically derived
// chunk ids. Changing it would re-key every derived id, so it never does.
var chunkNamespace = uuid.MustParse("7b9f3d86-4c11-4e9e-9a46-2f8a0c5d1b70")

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
// Used for editor-authored chunks and other fresh records.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DeriveID deterministically derives a chunk id from its source and content
// hash. Re-ingesting unchanged content always lands on the same id.
func DeriveID(sourceID, contentHash string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(sourceID+"\x00"+contentHash)).String()
}

// NowUnix returns the current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
