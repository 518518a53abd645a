package types

// Task is the canonical task record sent to the scoring service.
// Dependencies may name ids outside the batch; the service decides what that means.
type Task struct {
	ID             int     `json:"id,omitempty"`
	Title          string  `json:"title"`
	DueDate        string  `json:"due_date"` // YYYY-MM-DD
	EstimatedHours float64 `json:"estimated_hours"`
	Importance     int     `json:"importance"`
	Dependencies   []int   `json:"dependencies,omitempty"`
}

// AnalysisResult is a Task as returned by the service, annotated with its score.
// Results are read-only on the client.
type AnalysisResult struct {
	Task
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// ErrorResponse is the machine-readable failure body of the analyze endpoint.
// Details is present when the service reports several validation problems.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// Phase is the controller's busy/idle state
type Phase string

const (
	PhaseIdle Phase = "idle"
	PhaseBusy Phase = "busy"
)
