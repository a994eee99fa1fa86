// Package timeline scripts a field controller: a named list of phases and
// how long each lasts, loaded from .autons/timelines/*.yaml.
package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vexide/autons/compete"
)

// Step holds one phase for Duration.
type Step struct {
	Phase    compete.Phase `yaml:"phase"`
	Duration time.Duration `yaml:"duration"`
}

// Timeline is an ordered script of phases.
type Timeline struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
	// Hold keeps the source open after the last step instead of reporting a
	// disconnect.
	Hold bool `yaml:"hold,omitempty"`
}

// Validate enforces the structural rules of a timeline.
func (t Timeline) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("timeline: name is required")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("timeline %s: at least one step is required", t.Name)
	}
	for i, step := range t.Steps {
		if step.Duration < 0 {
			return fmt.Errorf("timeline %s: steps[%d]: duration must not be negative", t.Name, i)
		}
		if _, err := step.Phase.MarshalText(); err != nil {
			return fmt.Errorf("timeline %s: steps[%d]: %w", t.Name, i, err)
		}
	}
	return nil
}

// Normalized returns a copy with trimmed text fields.
func (t Timeline) Normalized() Timeline {
	out := t
	out.Name = strings.TrimSpace(t.Name)
	out.Description = strings.TrimSpace(t.Description)
	out.Steps = append([]Step(nil), t.Steps...)
	return out
}

// Total returns the combined duration of every step.
func (t Timeline) Total() time.Duration {
	var total time.Duration
	for _, step := range t.Steps {
		total += step.Duration
	}
	return total
}
