// Package transformer applies ordered row-level steps to a loaded table
// before any report logic runs.
package transformer

import (
	"fmt"

	"adinsights/internal/table"
)

// Step is one table → table transformation. Steps never modify their input.
type Step interface {
	Name() string
	Apply(t *table.Table) (*table.Table, error)
}

// Chain is an ordered list of steps.
type Chain []Step

// Apply runs every step in order. Errors are wrapped with the step name.
func (c Chain) Apply(t *table.Table) (*table.Table, error) {
	out := t
	for _, s := range c {
		var err error
		out, err = s.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", s.Name(), err)
		}
	}
	return out, nil
}

// RejectedRow describes a row a step dropped.
type RejectedRow struct {
	Step   string
	Row    int
	Column string
	Reason string
	Raw    string
}
