package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRunContext(t *testing.T) {
	rc := NewRunContext("")
	assert.Equal(t, SystemProfileID, rc.ProfileID)
	assert.Len(t, rc.RunID, 26)
	assert.False(t, rc.StartedAt.IsZero())

	other := NewRunContext("user-1")
	assert.NotEqual(t, rc.RunID, other.RunID)
}

func TestRunContext_WithMetadataCopyOnWrite(t *testing.T) {
	base := NewRunContext("p")
	a := base.WithMetadata("config_id", "c1")
	b := a.WithMetadata("config_id", "c2")
	c := a.WithMetadata("source", "greenhouse")

	_, ok := base.Metadata("config_id")
	assert.False(t, ok)

	v, _ := a.Metadata("config_id")
	assert.Equal(t, "c1", v)
	v, _ = b.Metadata("config_id")
	assert.Equal(t, "c2", v)

	assert.Equal(t, []string{"config_id"}, a.MetadataKeys())
	assert.Equal(t, []string{"config_id", "source"}, c.MetadataKeys())
	assert.Equal(t, base.RunID, c.RunID)
}
