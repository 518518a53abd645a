package tasks

import (
	"fmt"
	"strings"
)

// Mode names one of the two input paths.
type Mode string

const (
	ModeForm Mode = "form"
	ModeJSON Mode = "json"
)

// Modes lists every selectable mode in display order.
var Modes = []Mode{ModeJSON, ModeForm}

// ParseMode resolves a user-typed mode name. "manual" is accepted for ModeForm.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "form", "manual":
		return ModeForm, nil
	case "json":
		return ModeJSON, nil
	}
	return "", fmt.Errorf("unknown input mode %q (want form or json)", name)
}

// Selector holds the single active input mode.
// It owns no task data; switching never touches what either mode has collected.
type Selector struct {
	active Mode
}

// NewSelector starts in ModeJSON.
func NewSelector() *Selector {
	return &Selector{active: ModeJSON}
}

// Active returns the current mode.
func (s *Selector) Active() Mode { return s.active }

// Set makes m the active mode.
func (s *Selector) Set(m Mode) error {
	if m != ModeForm && m != ModeJSON {
		return fmt.Errorf("unknown input mode %q", m)
	}
	s.active = m
	return nil
}
