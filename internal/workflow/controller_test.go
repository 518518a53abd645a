package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haricheung/taskrank/internal/api"
	"github.com/haricheung/taskrank/internal/render"
	"github.com/haricheung/taskrank/internal/tasks"
	"github.com/haricheung/taskrank/internal/types"
)

// fakeService records calls and replays canned outcomes.
type fakeService struct {
	analyzeCalls []api.AnalyzeParams
	suggestCalls int
	analyzeOut   api.Outcome
	analyzeErr   error
	suggestOut   api.Outcome
}

func (f *fakeService) Analyze(_ context.Context, p api.AnalyzeParams) (api.Outcome, error) {
	f.analyzeCalls = append(f.analyzeCalls, p)
	return f.analyzeOut, f.analyzeErr
}

func (f *fakeService) Suggest(context.Context) api.Outcome {
	f.suggestCalls++
	return f.suggestOut
}

var testSettings = Settings{Strategies: []string{"smart", "fastest", "impact", "deadline"}, Strategy: "smart"}

func newController(t *testing.T, svc *fakeService) (*Controller, *[]Presentation) {
	t.Helper()
	c, err := New(svc, testSettings)
	require.NoError(t, err)
	var seen []Presentation
	c.Observe(func(p Presentation) { seen = append(seen, p) })
	return c, &seen
}

func success(results ...types.AnalysisResult) api.Outcome {
	if results == nil {
		results = []types.AnalysisResult{}
	}
	return api.Outcome{Kind: api.KindSuccess, Results: results}
}

func validForm(title string) tasks.FormInput {
	return tasks.FormInput{Title: title, DueDate: "2025-12-01", EstimatedHours: "2", Importance: "7", Dependencies: "1, x"}
}

func decodeTasks(t *testing.T, raw []json.RawMessage) []types.Task {
	t.Helper()
	out := make([]types.Task, len(raw))
	for i, r := range raw {
		require.NoError(t, json.Unmarshal(r, &out[i]))
	}
	return out
}

func assertExclusive(t *testing.T, seen []Presentation) {
	t.Helper()
	for i, p := range seen {
		if p.ProgressVisible == p.ResultsVisible {
			t.Errorf("snapshot %d: progress=%v results=%v must differ", i, p.ProgressVisible, p.ResultsVisible)
		}
		if (p.Phase == types.PhaseBusy) != p.ProgressVisible {
			t.Errorf("snapshot %d: phase %s with progress=%v", i, p.Phase, p.ProgressVisible)
		}
	}
}

// --- New ---

func TestNew_RejectsBadSettings(t *testing.T) {
	_, err := New(&fakeService{}, Settings{Strategy: "smart"})
	assert.Error(t, err)
	_, err = New(&fakeService{}, Settings{Strategies: []string{"smart"}, Strategy: "random"})
	assert.Error(t, err)
}

func TestNew_StartsIdle(t *testing.T) {
	c, _ := newController(t, &fakeService{})
	p := c.Presentation()
	assert.Equal(t, types.PhaseIdle, p.Phase)
	assert.True(t, p.ResultsVisible)
	assert.False(t, p.ProgressVisible)
	assert.Nil(t, p.View)
	assert.Equal(t, tasks.ModeJSON, c.Mode())
	assert.Empty(t, c.ManualTasks())
}

// --- AddManualTask ---

func TestAddManualTask_AssignsIncreasingIDs(t *testing.T) {
	c, _ := newController(t, &fakeService{})
	a, err := c.AddManualTask(validForm("a"))
	require.NoError(t, err)
	b, err := c.AddManualTask(validForm("b"))
	require.NoError(t, err)

	assert.Equal(t, FirstManualID, a.ID)
	assert.Equal(t, FirstManualID+1, b.ID)
	assert.Equal(t, []int{1}, a.Dependencies)
	assert.Len(t, c.ManualTasks(), 2)
}

func TestAddManualTask_ValidationErrorIsNoticeNotBanner(t *testing.T) {
	c, seen := newController(t, &fakeService{})
	in := validForm("")
	_, err := c.AddManualTask(in)

	var ve *tasks.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, *seen, 1)
	assert.Equal(t, MsgRequiredFields, (*seen)[0].Notice)
	assert.Empty(t, (*seen)[0].Error)
	assert.Empty(t, c.Presentation().Notice)
	assert.Empty(t, c.ManualTasks())

	_, err = c.AddManualTask(validForm("ok"))
	require.NoError(t, err)
	assert.Len(t, *seen, 1)
	assert.Equal(t, FirstManualID, c.ManualTasks()[0].ID)
}

func TestAddManualTask_FormatErrorNoticeNamesField(t *testing.T) {
	c, seen := newController(t, &fakeService{})
	in := validForm("x")
	in.DueDate = "tomorrow"
	_, err := c.AddManualTask(in)
	require.Error(t, err)
	require.Len(t, *seen, 1)
	assert.Contains(t, (*seen)[0].Notice, "due_date")
}

// --- SwitchMode ---

func TestSwitchMode_NeverTouchesOtherModeData(t *testing.T) {
	c, _ := newController(t, &fakeService{})
	c.SetJSON(`[{"id": 1, "title": "json task"}]`)
	require.NoError(t, c.SwitchMode(tasks.ModeForm))
	_, err := c.AddManualTask(validForm("manual task"))
	require.NoError(t, err)

	require.NoError(t, c.SwitchMode(tasks.ModeJSON))
	assert.Equal(t, `[{"id": 1, "title": "json task"}]`, c.JSONDraft())
	assert.Len(t, c.ManualTasks(), 1)

	require.NoError(t, c.SwitchMode(tasks.ModeForm))
	assert.Equal(t, `[{"id": 1, "title": "json task"}]`, c.JSONDraft())
	assert.Equal(t, "manual task", c.ManualTasks()[0].Title)
}

func TestSubmit_SendsOnlyActiveModeData(t *testing.T) {
	svc := &fakeService{analyzeOut: success()}
	c, _ := newController(t, svc)
	c.SetJSON(`[{"id": 1, "title": "json task"}, {"id": 2, "title": "other"}]`)
	require.NoError(t, c.SwitchMode(tasks.ModeForm))
	_, err := c.AddManualTask(validForm("manual task"))
	require.NoError(t, err)

	require.NoError(t, c.Submit(context.Background()))
	require.Len(t, svc.analyzeCalls, 1)
	require.Len(t, svc.analyzeCalls[0].Tasks, 1)
	sent := decodeTasks(t, svc.analyzeCalls[0].Tasks)
	assert.Equal(t, "manual task", sent[0].Title)
	assert.Equal(t, FirstManualID, sent[0].ID)

	require.NoError(t, c.SwitchMode(tasks.ModeJSON))
	require.NoError(t, c.Submit(context.Background()))
	require.Len(t, svc.analyzeCalls, 2)
	assert.Len(t, svc.analyzeCalls[1].Tasks, 2)
	assert.Len(t, c.ManualTasks(), 1)
}

func TestSubmit_JSONModeSendsElementsAsWritten(t *testing.T) {
	svc := &fakeService{analyzeOut: success()}
	c, _ := newController(t, svc)
	c.SetJSON(`[
		{"id": "1", "title": "A", "due_date": "2025-12-01", "estimated_hours": "3", "importance": 5.0},
		{"title": "B", "estimated_hours": 3, "note": "x"}
	]`)

	require.NoError(t, c.Submit(context.Background()))
	require.Len(t, svc.analyzeCalls, 1)
	sent := svc.analyzeCalls[0].Tasks
	require.Len(t, sent, 2)
	assert.Equal(t, `{"id": "1", "title": "A", "due_date": "2025-12-01", "estimated_hours": "3", "importance": 5.0}`, string(sent[0]))
	assert.Equal(t, `{"title": "B", "estimated_hours": 3, "note": "x"}`, string(sent[1]))
	assert.Empty(t, c.Presentation().Error)
}

// --- Submit: local failures ---

func TestSubmit_InvalidJSONNeverCallsService(t *testing.T) {
	svc := &fakeService{}
	c, seen := newController(t, svc)
	c.SetJSON(`[{"id": 1,`)

	err := c.Submit(context.Background())
	var pe *tasks.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, svc.analyzeCalls)
	assert.Equal(t, MsgInvalidJSON, c.Presentation().Error)
	assert.Equal(t, types.PhaseIdle, c.Presentation().Phase)
	assertExclusive(t, *seen)
}

func TestSubmit_EmptyBatchNeverCallsService(t *testing.T) {
	svc := &fakeService{}
	c, _ := newController(t, svc)

	c.SetJSON(`[]`)
	assert.True(t, errors.Is(c.Submit(context.Background()), api.ErrEmptyBatch))

	require.NoError(t, c.SwitchMode(tasks.ModeForm))
	assert.True(t, errors.Is(c.Submit(context.Background()), api.ErrEmptyBatch))

	assert.Empty(t, svc.analyzeCalls)
	assert.Equal(t, MsgNoTasks, c.Presentation().Error)
}

func TestSubmit_LocalFailureDropsPreviousRender(t *testing.T) {
	svc := &fakeService{analyzeOut: success(types.AnalysisResult{Task: types.Task{ID: 1, Title: "A"}, Score: 90})}
	c, seen := newController(t, svc)
	c.SetJSON(`[{"id": 1, "title": "A"}]`)
	require.NoError(t, c.Submit(context.Background()))
	require.NotNil(t, c.Presentation().View)

	c.SetJSON(`[]`)
	require.ErrorIs(t, c.Submit(context.Background()), api.ErrEmptyBatch)

	p := c.Presentation()
	assert.Nil(t, p.View)
	assert.Equal(t, MsgNoTasks, p.Error)
	assert.Len(t, svc.analyzeCalls, 1)
	assertExclusive(t, *seen)
}

// --- Submit: network outcomes ---

func TestSubmit_SuccessRendersInReceivedOrder(t *testing.T) {
	svc := &fakeService{analyzeOut: success(
		types.AnalysisResult{Task: types.Task{ID: 2, Title: "B"}, Score: 90},
		types.AnalysisResult{Task: types.Task{ID: 1, Title: "A"}, Score: 55.5},
	)}
	c, seen := newController(t, svc)
	c.SetJSON(`[{"id": 1, "title": "A"}, {"id": 2, "title": "B"}]`)
	require.NoError(t, c.SetStrategy("deadline"))
	c.SetUseAI(true)

	require.NoError(t, c.Submit(context.Background()))

	require.Len(t, svc.analyzeCalls, 1)
	assert.Equal(t, "deadline", svc.analyzeCalls[0].Strategy)
	assert.True(t, svc.analyzeCalls[0].UseAI)

	p := c.Presentation()
	require.NotNil(t, p.View)
	require.Len(t, p.View.Cards, 2)
	assert.Equal(t, 2, p.View.Cards[0].ID)
	assert.Equal(t, render.TierHigh, p.View.Cards[0].Tier)
	assert.Equal(t, 56, p.View.Cards[1].Score)
	assert.Empty(t, p.Error)

	require.Len(t, *seen, 2)
	assert.Equal(t, types.PhaseBusy, (*seen)[0].Phase)
	assert.Equal(t, types.PhaseIdle, (*seen)[1].Phase)
	assertExclusive(t, *seen)
}

func TestSubmit_EmptySuccessIsNoResultsState(t *testing.T) {
	svc := &fakeService{analyzeOut: success()}
	c, _ := newController(t, svc)
	c.SetJSON(`[{"id": 1, "title": "A"}]`)
	require.NoError(t, c.Submit(context.Background()))

	p := c.Presentation()
	require.NotNil(t, p.View)
	assert.True(t, p.View.Empty)
	assert.Empty(t, p.Error)
}

func TestSubmit_FailureShowsBannerAndClearsResults(t *testing.T) {
	svc := &fakeService{analyzeOut: success(types.AnalysisResult{Task: types.Task{ID: 1}, Score: 10})}
	c, seen := newController(t, svc)
	c.SetJSON(`[{"id": 1, "title": "A"}]`)
	require.NoError(t, c.Submit(context.Background()))
	require.NotNil(t, c.Presentation().View)

	svc.analyzeOut = api.Outcome{Kind: api.KindStructuredFailure, Message: "Invalid task: due_date required"}
	require.NoError(t, c.Submit(context.Background()))

	p := c.Presentation()
	assert.Equal(t, "Invalid task: due_date required", p.Error)
	assert.Nil(t, p.View)
	assert.True(t, p.ResultsVisible)
	assertExclusive(t, *seen)
}

func TestSubmit_BusyClearsPreviousError(t *testing.T) {
	svc := &fakeService{analyzeOut: success()}
	c, seen := newController(t, svc)
	c.SetJSON(`oops`)
	require.Error(t, c.Submit(context.Background()))
	require.Equal(t, MsgInvalidJSON, c.Presentation().Error)

	c.SetJSON(`[{"id": 1, "title": "A"}]`)
	require.NoError(t, c.Submit(context.Background()))

	busy := (*seen)[len(*seen)-2]
	assert.Equal(t, types.PhaseBusy, busy.Phase)
	assert.Empty(t, busy.Error)
	assert.Nil(t, busy.View)
	assert.Empty(t, c.Presentation().Error)
}

func TestSubmit_ServiceErrorBecomesTransportMessage(t *testing.T) {
	svc := &fakeService{analyzeErr: errors.New("api: create request: bad url")}
	c, _ := newController(t, svc)
	c.SetJSON(`[{"id": 1, "title": "A"}]`)
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, "api: create request: bad url", c.Presentation().Error)
}

// --- FetchSuggestions ---

func TestFetchSuggestions(t *testing.T) {
	svc := &fakeService{suggestOut: success(types.AnalysisResult{Task: types.Task{ID: 9, Title: "Top"}, Score: 81})}
	c, seen := newController(t, svc)
	c.FetchSuggestions(context.Background())

	assert.Equal(t, 1, svc.suggestCalls)
	require.NotNil(t, c.Presentation().View)
	assert.Equal(t, "Top", c.Presentation().View.Cards[0].Title)

	svc.suggestOut = api.Outcome{Kind: api.KindUnstructuredFailure, Message: api.SuggestFailureMessage}
	c.FetchSuggestions(context.Background())
	assert.Equal(t, api.SuggestFailureMessage, c.Presentation().Error)
	assert.Nil(t, c.Presentation().View)
	assertExclusive(t, *seen)
}

// --- SetStrategy / Reset ---

func TestSetStrategy_RejectsUnknown(t *testing.T) {
	c, _ := newController(t, &fakeService{})
	assert.Error(t, c.SetStrategy("random"))
	assert.Equal(t, "smart", c.Strategy())
}

func TestReset_ClearsSessionAndRestartsIDs(t *testing.T) {
	svc := &fakeService{analyzeOut: success(types.AnalysisResult{Task: types.Task{ID: 1}})}
	c, seen := newController(t, svc)
	require.NoError(t, c.SwitchMode(tasks.ModeForm))
	_, _ = c.AddManualTask(validForm("a"))
	_, _ = c.AddManualTask(validForm("b"))
	c.SetJSON(`[1]`)
	require.NoError(t, c.Submit(context.Background()))

	c.Reset()
	assert.Empty(t, c.ManualTasks())
	assert.Empty(t, c.JSONDraft())
	assert.Nil(t, c.Presentation().View)
	assert.Equal(t, tasks.ModeForm, c.Mode())

	task, err := c.AddManualTask(validForm("c"))
	require.NoError(t, err)
	assert.Equal(t, FirstManualID, task.ID)
	assertExclusive(t, *seen)
}
