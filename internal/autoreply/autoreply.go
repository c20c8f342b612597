// Package autoreply maps exact inbound message bodies to canned replies.
package autoreply

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table maps a trigger body to its reply. Matching is exact and
// case-sensitive; bodies are never trimmed.
type Table map[string]string

// Default returns the built-in replies.
func Default() Table {
	return Table{
		"!ping": "pong",
		"a":     "Huruf A",
		"b":     "Huruf B",
		"c":     "Huruf C",
	}
}

// Lookup returns the reply for body, if any.
func (t Table) Lookup(body string) (string, bool) {
	reply, ok := t[body]
	return reply, ok
}

// Merge returns a new table holding t overlaid with other.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// LoadFile reads a YAML mapping of trigger to reply.
//
//	"!ping": pong
//	halo: "Halo juga"
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read auto-reply file: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse auto-reply file: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}
