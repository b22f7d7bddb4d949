package ats

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/jonathan/job-ingest/internal/types"
)

// Connector lists the jobs published on one kind of job board.
type Connector interface {
	Type() string
	List(ctx context.Context, src Source) ([]types.DiscoveredJob, error)
}

// Registry maps source types to connectors.
type Registry map[string]Connector

// NewRegistry returns a registry with the Greenhouse and Lever connectors
// sharing client.
func NewRegistry(client *http.Client) Registry {
	return Registry{
		TypeGreenhouse: NewGreenhouse(client),
		TypeLever:      NewLever(client),
	}
}

// Get returns the connector for a source type.
func (r Registry) Get(sourceType string) (Connector, error) {
	c, ok := r[sourceType]
	if !ok {
		return nil, fmt.Errorf("no connector registered for source type %q", sourceType)
	}
	return c, nil
}

// Types returns registered source types in sorted order.
func (r Registry) Types() []string {
	out := make([]string, 0, len(r))
	for t := range r {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
