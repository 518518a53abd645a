// Package api talks to the task scoring service.
//
// Requests are built by NewAnalyzeRequest / NewSuggestRequest and every answer,
// including transport errors, is folded into an Outcome by Classify. Callers
// never see a raw *http.Response.
package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/haricheung/taskrank/internal/journal"
)

// Client sends analysis and suggestion requests to one service base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
	journal    *journal.Journal
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithJournal records every request to j.
func WithJournal(j *journal.Journal) Option {
	return func(c *Client) { c.journal = j }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for baseURL.
// The default http.Client has no timeout: an unresponsive service blocks until ctx is cancelled.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: &http.Client{},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized service base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Analyze submits p to the analyze endpoint.
// An empty batch is reported as ErrEmptyBatch without touching the network.
func (c *Client) Analyze(ctx context.Context, p AnalyzeParams) (Outcome, error) {
	req, err := NewAnalyzeRequest(ctx, c.baseURL, p)
	if err != nil {
		return Outcome{}, err
	}
	return c.do(req, PathAnalyze, len(p.Tasks)), nil
}

// Suggest fetches the standing suggestions.
func (c *Client) Suggest(ctx context.Context) Outcome {
	req, err := NewSuggestRequest(ctx, c.baseURL)
	if err != nil {
		return TransportFailure(err)
	}
	return c.do(req, PathSuggest, 0)
}

func (c *Client) do(req *http.Request, path Path, taskCount int) (out Outcome) {
	entry := c.log.WithFields(logrus.Fields{
		"request_id": req.Header.Get(RequestIDHeader),
		"method":     req.Method,
		"url":        req.URL.String(),
	})
	entry.Debug("api: sending request")
	start := time.Now()

	status := 0
	defer func() {
		c.journal.Record(journalEntry(req, path, taskCount, status, out, time.Since(start)), !out.OK())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).Warn("api: http request failed")
		return TransportFailure(err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		entry.WithError(err).Warn("api: read response failed")
		return TransportFailure(err)
	}

	out = Classify(path, resp.StatusCode, body)
	entry = entry.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
		"outcome": out.Kind,
	})
	if out.OK() {
		entry.WithField("results", len(out.Results)).Debug("api: response classified")
	} else {
		entry.WithField("message", out.Message).Warn("api: response classified")
	}
	return out
}

func journalEntry(req *http.Request, path Path, taskCount, status int, out Outcome, elapsed time.Duration) journal.Request {
	q := req.URL.Query()
	r := journal.Request{
		RequestID: req.Header.Get(RequestIDHeader),
		Path:      string(path),
		Strategy:  q.Get("strategy"),
		TaskCount: taskCount,
		Status:    status,
		Outcome:   string(out.Kind),
		Results:   len(out.Results),
		Message:   out.Message,
		Elapsed:   elapsed,
	}
	if v, err := strconv.ParseBool(q.Get("use_ai")); err == nil {
		r.UseAI = &v
	}
	return r
}
