// Package ats provides read-only clients for applicant tracking system job
// board APIs and the source registry that drives discovery.
package ats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source types understood by the connectors.
const (
	TypeGreenhouse = "greenhouse"
	TypeLever      = "lever"
)

// KnownType reports whether t names a connector.
func KnownType(t string) bool {
	return t == TypeGreenhouse || t == TypeLever
}

// Source is one registered job board.
type Source struct {
	Name                   string     `yaml:"name" json:"name"`
	Type                   string     `yaml:"type" json:"type"`
	Board                  string     `yaml:"board" json:"board"`
	CompanyID              *uuid.UUID `yaml:"company_id,omitempty" json:"company_id,omitempty"`
	CompanyName            string     `yaml:"company_name,omitempty" json:"company_name,omitempty"`
	DelayBetweenRequestsMs int        `yaml:"delay_between_requests_ms" json:"delay_between_requests_ms"`
	BaseURL                string     `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// Delay returns the pause between consecutive job requests.
func (s Source) Delay() time.Duration {
	if s.DelayBetweenRequestsMs <= 0 {
		return 0
	}
	return time.Duration(s.DelayBetweenRequestsMs) * time.Millisecond
}

// Validate checks a single source entry.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if !KnownType(s.Type) {
		return fmt.Errorf("source %s: unknown type %q", s.Name, s.Type)
	}
	if s.Board == "" {
		return fmt.Errorf("source %s: board is required", s.Name)
	}
	if s.DelayBetweenRequestsMs < 0 {
		return fmt.Errorf("source %s: delay_between_requests_ms must be >= 0", s.Name)
	}
	return nil
}
