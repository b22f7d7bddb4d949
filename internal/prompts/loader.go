// Package prompts holds the LLM prompt text used for extraction, embedded
// from JSON files at build time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

// Set is one prompt file, keyed by prompt name.
type Set map[string]string

var (
	mu     sync.RWMutex
	loaded = map[string]Set{}
)

// Get returns the prompt key from file, e.g. Get("extraction.json", "job-posting").
func Get(file, key string) (string, error) {
	set, err := load(file)
	if err != nil {
		return "", err
	}
	p, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return p, nil
}

// MustGet is Get for prompts the program cannot run without.
func MustGet(file, key string) string {
	p, err := Get(file, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return p
}

// Format substitutes {{.Name}} placeholders. Substituted values are not
// scanned for further placeholders.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{."+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Keys lists the prompt names in file, sorted.
func Keys(file string) ([]string, error) {
	set, err := load(file)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Reset drops parsed files.
func Reset() {
	mu.Lock()
	loaded = map[string]Set{}
	mu.Unlock()
}

func load(file string) (Set, error) {
	mu.RLock()
	set, ok := loaded[file]
	mu.RUnlock()
	if ok {
		return set, nil
	}

	data, err := files.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", file, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", file, err)
	}

	mu.Lock()
	loaded[file] = set
	mu.Unlock()
	return set, nil
}
