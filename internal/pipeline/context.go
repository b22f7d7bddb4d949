package pipeline

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// SystemProfileID identifies runs started by a scheduler rather than a user.
const SystemProfileID = "system"

// NewRunID returns a new monotonic ULID string.
func NewRunID() string {
	return ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
}

type metaEntry struct {
	key   string
	value string
}

// RunContext is the per-run record shared by every step. It is a value
// type: WithMetadata returns a copy and never alters the receiver.
type RunContext struct {
	RunID     string
	ProfileID string
	StartedAt time.Time
	meta      []metaEntry
}

// NewRunContext allocates a context for a fresh run.
func NewRunContext(profileID string) RunContext {
	if profileID == "" {
		profileID = SystemProfileID
	}
	return RunContext{
		RunID:     NewRunID(),
		ProfileID: profileID,
		StartedAt: time.Now(),
	}
}

// WithMetadata returns a copy of the context with key set to value. Keys
// keep their original insertion position when overwritten.
func (rc RunContext) WithMetadata(key, value string) RunContext {
	meta := make([]metaEntry, len(rc.meta), len(rc.meta)+1)
	copy(meta, rc.meta)
	for i := range meta {
		if meta[i].key == key {
			meta[i].value = value
			rc.meta = meta
			return rc
		}
	}
	rc.meta = append(meta, metaEntry{key: key, value: value})
	return rc
}

// Metadata looks up a metadata value.
func (rc RunContext) Metadata(key string) (string, bool) {
	for _, e := range rc.meta {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// MetadataKeys returns keys in insertion order.
func (rc RunContext) MetadataKeys() []string {
	keys := make([]string, len(rc.meta))
	for i, e := range rc.meta {
		keys[i] = e.key
	}
	return keys
}
