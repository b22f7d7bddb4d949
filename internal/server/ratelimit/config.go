package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one method and path. A path ending in "/" matches every
// path under it. Limit 0 means unlimited.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
	Burst  int
}

func (r Rule) matches(method, path string) bool {
	if r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Path, "/") {
		return strings.HasPrefix(path, r.Path)
	}
	return r.Path == path
}

func (r Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	// Default applies to requests no rule matches.
	Default Rule
	Rules   []Rule
	// Exempt clients are never limited.
	Exempt map[string]bool
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration
}

// DefaultRules limits the endpoints that trigger outbound work. Each
// ingestion fetches a page and may call the extraction service; each
// workflow trigger can start a full board crawl.
func DefaultRules() []Rule {
	return []Rule{
		{Method: "GET", Path: "/health", Limit: 0},
		{Method: "POST", Path: "/ingest", Limit: 60, Window: time.Minute, Burst: 10},
		{Method: "POST", Path: "/workflows/", Limit: 12, Window: time.Hour, Burst: 2},
	}
}

// LoadConfig reads RATE_LIMIT_ENABLED, RATE_LIMIT_DEFAULT_LIMIT,
// RATE_LIMIT_DEFAULT_WINDOW and RATE_LIMIT_EXEMPT (comma-separated
// client ids).
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled: true,
		Default: Rule{
			Limit:  getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 600),
			Window: getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		},
		Rules:   DefaultRules(),
		Exempt:  parseList(os.Getenv("RATE_LIMIT_EXEMPT")),
		IdleTTL: time.Hour,
	}
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func parseList(list string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
