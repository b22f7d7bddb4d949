package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newTestLimiter(cfg *Config) (*Limiter, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = c.now
	return l, c
}

func testConfig() *Config {
	return &Config{
		Enabled: true,
		Default: Rule{Limit: 100, Window: time.Minute},
		Rules:   DefaultRules(),
		Exempt:  map[string]bool{"10.0.0.1": true},
		IdleTTL: time.Hour,
	}
}

func TestAllow_BurstThenRefill(t *testing.T) {
	l, c := newTestLimiter(testConfig())

	for i := 0; i < 10; i++ {
		d := l.Allow("1.2.3.4", "POST", "/ingest")
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 60, d.Limit)
	}
	d := l.Allow("1.2.3.4", "POST", "/ingest")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Second, d.RetryAfter)

	c.advance(time.Second)
	assert.True(t, l.Allow("1.2.3.4", "POST", "/ingest").Allowed)
	assert.False(t, l.Allow("1.2.3.4", "POST", "/ingest").Allowed)
}

func TestAllow_SeparateClientsAndRules(t *testing.T) {
	l, _ := newTestLimiter(testConfig())

	assert.True(t, l.Allow("a", "POST", "/workflows/discovery").Allowed)
	assert.True(t, l.Allow("a", "POST", "/workflows/status-check").Allowed)
	assert.False(t, l.Allow("a", "POST", "/workflows/discovery").Allowed, "workflow routes share one bucket")

	assert.True(t, l.Allow("b", "POST", "/workflows/discovery").Allowed)
	assert.True(t, l.Allow("a", "POST", "/ingest").Allowed)
	assert.True(t, l.Allow("a", "GET", "/jobs/by-url").Allowed)
}

func TestAllow_Unlimited(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	for i := 0; i < 500; i++ {
		require.True(t, l.Allow("a", "GET", "/health").Allowed)
	}
	for i := 0; i < 50; i++ {
		require.True(t, l.Allow("10.0.0.1", "POST", "/workflows/discovery").Allowed)
	}
	assert.Equal(t, 0, l.Len())

	disabled, _ := newTestLimiter(&Config{Enabled: false})
	assert.True(t, disabled.Allow("a", "POST", "/ingest").Allowed)

	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("a", "POST", "/ingest").Allowed)
}

func TestAllow_PrunesIdleBuckets(t *testing.T) {
	l, c := newTestLimiter(testConfig())
	l.Allow("a", "POST", "/ingest")
	l.Allow("b", "POST", "/ingest")
	assert.Equal(t, 2, l.Len())

	c.advance(2 * time.Hour)
	l.Allow("c", "POST", "/ingest")
	assert.Equal(t, 1, l.Len())
}

func TestRuleMatches(t *testing.T) {
	assert.True(t, Rule{Method: "POST", Path: "/workflows/"}.matches("POST", "/workflows/discovery"))
	assert.False(t, Rule{Method: "POST", Path: "/workflows/"}.matches("GET", "/workflows/discovery"))
	assert.True(t, Rule{Method: "POST", Path: "/ingest"}.matches("POST", "/ingest"))
	assert.False(t, Rule{Method: "POST", Path: "/ingest"}.matches("POST", "/ingest/extra"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "5")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "10s")
	t.Setenv("RATE_LIMIT_EXEMPT", " 127.0.0.1 , ::1,")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.Default.Limit)
	assert.Equal(t, 10*time.Second, cfg.Default.Window)
	assert.Equal(t, map[string]bool{"127.0.0.1": true, "::1": true}, cfg.Exempt)
	assert.Len(t, cfg.Rules, 3)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
