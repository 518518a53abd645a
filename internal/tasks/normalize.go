// Package tasks turns user input into canonical task records.
//
// Two entry paths exist: structured form fields (FromForm) and a raw JSON
// document (ParseJSON). Form entries become types.Task; JSON elements stay raw
// so the service sees exactly what the user wrote. Neither touches the network.
package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/haricheung/taskrank/internal/types"
)

// DefaultImportance is used when the importance field is left blank.
const DefaultImportance = 5

const dateLayout = "2006-01-02"

// ValidationError reports a manual-entry field that blocks task creation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ParseError reports JSON input that could not be read as a task list.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "tasks: invalid JSON format: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// FormInput holds the raw text of each manual-entry field.
type FormInput struct {
	Title          string
	DueDate        string
	EstimatedHours string
	Importance     string
	Dependencies   string
}

// FromForm builds a Task with the given placeholder id from form field values.
//
// Expectations:
//   - Returns *ValidationError when title, due date or estimated hours is empty or blank
//   - Returns *ValidationError when the due date is not YYYY-MM-DD
//   - Returns *ValidationError when estimated hours or importance does not parse
//   - Uses DefaultImportance when importance is blank
//   - Leaves importance and hours ranges unchecked
//   - Drops unparseable dependency tokens without failing
func FromForm(in FormInput, id int) (types.Task, error) {
	title := strings.TrimSpace(in.Title)
	due := strings.TrimSpace(in.DueDate)
	hours := strings.TrimSpace(in.EstimatedHours)

	switch {
	case title == "":
		return types.Task{}, &ValidationError{Field: "title", Reason: "required"}
	case due == "":
		return types.Task{}, &ValidationError{Field: "due_date", Reason: "required"}
	case hours == "":
		return types.Task{}, &ValidationError{Field: "estimated_hours", Reason: "required"}
	}

	if _, err := time.Parse(dateLayout, due); err != nil {
		return types.Task{}, &ValidationError{Field: "due_date", Reason: "expected YYYY-MM-DD"}
	}
	h, err := strconv.ParseFloat(hours, 64)
	if err != nil {
		return types.Task{}, &ValidationError{Field: "estimated_hours", Reason: "not a number"}
	}

	importance := DefaultImportance
	if s := strings.TrimSpace(in.Importance); s != "" {
		importance, err = strconv.Atoi(s)
		if err != nil {
			return types.Task{}, &ValidationError{Field: "importance", Reason: "not a whole number"}
		}
	}

	return types.Task{
		ID:             id,
		Title:          title,
		DueDate:        due,
		EstimatedHours: h,
		Importance:     importance,
		Dependencies:   ParseDependencies(in.Dependencies),
	}, nil
}

// ParseDependencies reads a comma-separated list of task ids.
// Tokens that are not integers are skipped.
//
// Expectations:
//   - "1, 2, x, 3" yields [1 2 3]
//   - Returns an empty non-nil slice for blank input
//   - Preserves input order
func ParseDependencies(s string) []int {
	deps := []int{}
	if strings.TrimSpace(s) == "" {
		return deps
	}
	for _, tok := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			continue
		}
		deps = append(deps, n)
	}
	return deps
}

// ParseJSON reads raw JSON text as an array of task objects.
// Elements are returned as written: field types are the service's concern,
// so "importance": 5.0 or "id": "1" pass through untouched.
//
// Expectations:
//   - Returns *ParseError for malformed JSON
//   - Returns *ParseError when the document is not an array of objects
//   - Returns an empty slice for "[]" (emptiness is the caller's concern)
//   - Keeps every element byte-for-byte, including unknown and missing fields
func ParseJSON(text string) ([]json.RawMessage, error) {
	raw := bytes.TrimSpace([]byte(text))
	if len(raw) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("empty input")}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &ParseError{Err: err}
	}
	if list == nil {
		// literal null
		return nil, &ParseError{Err: fmt.Errorf("expected a JSON array")}
	}
	for i, elem := range list {
		if len(elem) == 0 || elem[0] != '{' {
			return nil, &ParseError{Err: fmt.Errorf("element %d is not an object", i)}
		}
	}
	return list, nil
}

// Encode serialises manually entered tasks into the same shape ParseJSON returns.
func Encode(list []types.Task) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(list))
	for _, t := range list {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("tasks: encode #%d: %w", t.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}
