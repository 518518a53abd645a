// Package workflow drives one analysis session.
//
// A Controller is created once per session and owns every piece of mutable
// session state: the input mode, the manual-entry accumulator, the JSON draft,
// the chosen strategy and AI flag, and the presentation snapshot. Each
// user-triggered event is one method. Observers receive every presentation
// change; nothing else toggles visibility.
//
// A Controller is not safe for concurrent use. Callers drive it from a single
// event loop; a long Submit simply blocks that loop until the service answers
// or ctx is cancelled.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/haricheung/taskrank/internal/api"
	"github.com/haricheung/taskrank/internal/render"
	"github.com/haricheung/taskrank/internal/tasks"
	"github.com/haricheung/taskrank/internal/types"
)

// FirstManualID is the placeholder id given to the first manually entered task.
const FirstManualID = 100

// Banner and notice texts.
const (
	MsgInvalidJSON    = "Invalid JSON format"
	MsgNoTasks        = "No tasks to analyze"
	MsgRequiredFields = "Please fill in required fields"
)

// Service is the scoring service as seen by the controller.
type Service interface {
	Analyze(ctx context.Context, p api.AnalyzeParams) (api.Outcome, error)
	Suggest(ctx context.Context) api.Outcome
}

// Presentation is what the user currently sees.
// ProgressVisible and ResultsVisible are never both true or both false.
type Presentation struct {
	Phase           types.Phase
	ProgressVisible bool
	ResultsVisible  bool
	View            *render.View // nil when the results area is cleared
	Error           string       // error banner; "" when hidden
	Notice          string       // one-shot blocking notice from manual entry
}

// Settings are the caller-configured choices a Controller starts with.
type Settings struct {
	Strategies []string
	Strategy   string
	UseAI      bool
}

// Controller orchestrates normalize → request → classify → render.
type Controller struct {
	svc      Service
	selector *tasks.Selector

	manual    []types.Task
	nextID    int
	jsonDraft string

	strategies []string
	strategy   string
	useAI      bool

	pres      Presentation
	observers []func(Presentation)
}

// New creates a Controller in the idle state.
//
// Expectations:
//   - Returns an error when no strategies are configured
//   - Returns an error when s.Strategy is not one of s.Strategies
//   - Starts idle, in JSON mode, with an empty accumulator and no render
func New(svc Service, s Settings) (*Controller, error) {
	if len(s.Strategies) == 0 {
		return nil, fmt.Errorf("workflow: no strategies configured")
	}
	if !slices.Contains(s.Strategies, s.Strategy) {
		return nil, fmt.Errorf("workflow: strategy %q not in %v", s.Strategy, s.Strategies)
	}
	return &Controller{
		svc:        svc,
		selector:   tasks.NewSelector(),
		nextID:     FirstManualID,
		strategies: slices.Clone(s.Strategies),
		strategy:   s.Strategy,
		useAI:      s.UseAI,
		pres:       idle(),
	}, nil
}

func idle() Presentation {
	return Presentation{Phase: types.PhaseIdle, ResultsVisible: true}
}

// Observe registers fn to receive every presentation change.
func (c *Controller) Observe(fn func(Presentation)) {
	c.observers = append(c.observers, fn)
}

func (c *Controller) emit() {
	for _, fn := range c.observers {
		fn(c.pres)
	}
}

// Presentation returns the current snapshot.
func (c *Controller) Presentation() Presentation { return c.pres }

// Mode returns the active input mode.
func (c *Controller) Mode() tasks.Mode { return c.selector.Active() }

// Strategy returns the selected strategy.
func (c *Controller) Strategy() string { return c.strategy }

// Strategies returns the configured strategy names.
func (c *Controller) Strategies() []string { return slices.Clone(c.strategies) }

// UseAI reports whether AI assistance is requested.
func (c *Controller) UseAI() bool { return c.useAI }

// JSONDraft returns the pending JSON text.
func (c *Controller) JSONDraft() string { return c.jsonDraft }

// ManualTasks returns a copy of the accumulated manual tasks.
func (c *Controller) ManualTasks() []types.Task { return slices.Clone(c.manual) }

// SwitchMode changes the active input mode. Data held by either mode is untouched.
func (c *Controller) SwitchMode(m tasks.Mode) error {
	return c.selector.Set(m)
}

// SetJSON replaces the pending JSON text. It is only parsed on Submit.
func (c *Controller) SetJSON(text string) {
	c.jsonDraft = text
}

// SetStrategy selects one of the configured strategies.
func (c *Controller) SetStrategy(name string) error {
	if !slices.Contains(c.strategies, name) {
		return fmt.Errorf("workflow: unknown strategy %q (have %v)", name, c.strategies)
	}
	c.strategy = name
	return nil
}

// SetUseAI toggles the AI-assist flag sent with the next analysis.
func (c *Controller) SetUseAI(on bool) {
	c.useAI = on
}

// AddManualTask normalizes one form entry and appends it to the accumulator.
//
// Expectations:
//   - Assigns ids FirstManualID, FirstManualID+1, ... in insertion order
//   - On *tasks.ValidationError emits one snapshot carrying Notice; accumulator and banner untouched
//   - The notice is not retained after that snapshot
func (c *Controller) AddManualTask(in tasks.FormInput) (types.Task, error) {
	task, err := tasks.FromForm(in, c.nextID)
	if err != nil {
		var ve *tasks.ValidationError
		if errors.As(err, &ve) && ve.Reason == "required" {
			c.pres.Notice = MsgRequiredFields
		} else {
			c.pres.Notice = err.Error()
		}
		c.emit()
		c.pres.Notice = ""
		return types.Task{}, err
	}
	c.manual = append(c.manual, task)
	c.nextID++
	return task, nil
}

// batch collects the tasks for the active mode without touching the other mode's data.
// JSON-mode elements go out as written.
func (c *Controller) batch() ([]json.RawMessage, error) {
	if c.selector.Active() == tasks.ModeForm {
		return tasks.Encode(c.manual)
	}
	return tasks.ParseJSON(c.jsonDraft)
}

// Submit analyzes the active mode's tasks.
//
// Expectations:
//   - JSON mode with bad JSON: error banner MsgInvalidJSON, returns *tasks.ParseError, no network call
//   - Empty batch: error banner MsgNoTasks, returns api.ErrEmptyBatch, no network call
//   - Either local failure drops the previous render and stays idle
//   - Otherwise busy → service → idle; returns nil whatever the service answered
//   - Service failures land in Presentation.Error; success lands in Presentation.View
func (c *Controller) Submit(ctx context.Context) error {
	list, err := c.batch()
	if err != nil {
		var pe *tasks.ParseError
		if errors.As(err, &pe) {
			c.reject(MsgInvalidJSON)
		} else {
			c.reject(err.Error())
		}
		return err
	}
	if len(list) == 0 {
		c.reject(MsgNoTasks)
		return api.ErrEmptyBatch
	}

	c.begin()
	out, err := c.svc.Analyze(ctx, api.AnalyzeParams{
		Tasks:    list,
		UseAI:    c.useAI,
		Strategy: c.strategy,
	})
	if err != nil {
		out = api.TransportFailure(err)
	}
	c.finish(out)
	return nil
}

// FetchSuggestions shows the service's standing suggestions.
func (c *Controller) FetchSuggestions(ctx context.Context) {
	c.begin()
	c.finish(c.svc.Suggest(ctx))
}

// Reset clears the accumulator, the JSON draft, the render and the banner.
// The input mode, strategy and AI flag are kept.
func (c *Controller) Reset() {
	c.manual = nil
	c.nextID = FirstManualID
	c.jsonDraft = ""
	c.pres = idle()
	c.emit()
}

// reject shows a pre-network failure. The phase stays idle.
func (c *Controller) reject(msg string) {
	c.pres = idle()
	c.pres.Error = msg
	c.emit()
}

func (c *Controller) begin() {
	c.pres = Presentation{
		Phase:           types.PhaseBusy,
		ProgressVisible: true,
	}
	c.emit()
}

func (c *Controller) finish(out api.Outcome) {
	c.pres = idle()
	if out.OK() {
		v := render.Build(out.Results)
		c.pres.View = &v
	} else {
		c.pres.Error = out.Message
	}
	c.emit()
}
