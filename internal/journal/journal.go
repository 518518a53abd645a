// Package journal records one JSONL file per client session.
//
// A session_begin line is written on Open, one request line per call to the
// scoring service, and a session_end line with totals on Close.
//
// All Journal methods are nil-safe, so callers that run without a journal
// need no checks before recording.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventKind labels a single journal line.
type EventKind string

const (
	KindSessionBegin EventKind = "session_begin"
	KindRequest      EventKind = "request"
	KindSessionEnd   EventKind = "session_end"
)

// Event is one JSONL line. Fields are omitempty so each kind only carries what it needs.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`
	SessionID string    `json:"session_id,omitempty"`

	// session_begin
	BaseURL string `json:"base_url,omitempty"`

	// request
	RequestID string `json:"request_id,omitempty"`
	Path      string `json:"path,omitempty"` // "analyze" | "suggest"
	Strategy  string `json:"strategy,omitempty"`
	UseAI     *bool  `json:"use_ai,omitempty"` // pointer: false must be serialised
	TaskCount int    `json:"task_count,omitempty"`
	Status    int    `json:"status,omitempty"` // 0 when no response arrived
	Outcome   string `json:"outcome,omitempty"`
	Results   int    `json:"results,omitempty"`
	Message   string `json:"message,omitempty"`

	ElapsedMs int64 `json:"elapsed_ms,omitempty"`

	// session_end
	Requests int `json:"requests,omitempty"`
	Failures int `json:"failures,omitempty"`
}

// Request describes one finished call to the scoring service.
type Request struct {
	RequestID string
	Path      string
	Strategy  string
	UseAI     *bool
	TaskCount int
	Status    int
	Outcome   string
	Results   int
	Message   string
	Elapsed   time.Duration
}

// Journal is an open session file.
type Journal struct {
	id      string
	path    string
	started time.Time
	log     logrus.FieldLogger

	mu       sync.Mutex
	f        *os.File
	requests int
	failures int
}

// Open creates dir if needed and starts a new session file named after a fresh session id.
func Open(dir, baseURL string, log logrus.FieldLogger) (*Journal, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	id := uuid.NewString()
	path := filepath.Join(dir, time.Now().Format("20060102-150405")+"-"+id[:8]+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	j := &Journal{id: id, path: path, started: time.Now(), log: log, f: f}
	j.write(Event{Kind: KindSessionBegin, BaseURL: baseURL})
	return j, nil
}

// ID returns the session id, or "" for a nil Journal.
func (j *Journal) ID() string {
	if j == nil {
		return ""
	}
	return j.id
}

// Path returns the session file path, or "" for a nil Journal.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Record appends one request line. failed counts toward the session_end totals.
func (j *Journal) Record(r Request, failed bool) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.requests++
	if failed {
		j.failures++
	}
	j.mu.Unlock()

	j.write(Event{
		Kind:      KindRequest,
		RequestID: r.RequestID,
		Path:      r.Path,
		Strategy:  r.Strategy,
		UseAI:     r.UseAI,
		TaskCount: r.TaskCount,
		Status:    r.Status,
		Outcome:   r.Outcome,
		Results:   r.Results,
		Message:   r.Message,
		ElapsedMs: r.Elapsed.Milliseconds(),
	})
}

// Close writes session_end and closes the file. Later calls are no-ops.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	requests, failures := j.requests, j.failures
	j.mu.Unlock()

	j.write(Event{
		Kind:      KindSessionEnd,
		Requests:  requests,
		Failures:  failures,
		ElapsedMs: time.Since(j.started).Milliseconds(),
	})

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

// write serialises e as one line. Errors are logged, never returned.
func (j *Journal) write(e Event) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	e.SessionID = j.id

	data, err := json.Marshal(e)
	if err != nil {
		j.log.WithError(err).Error("journal: marshal event")
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return
	}
	if _, err := j.f.Write(data); err != nil {
		j.log.WithError(err).WithField("path", j.path).Error("journal: write event")
	}
}
