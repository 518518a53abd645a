package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyBatch is returned before any network call when there is nothing to analyze.
var ErrEmptyBatch = errors.New("api: no tasks to analyze")

// RequestIDHeader carries a per-request uuid for log correlation.
const RequestIDHeader = "X-Request-ID"

const (
	analyzePath = "/analyze/"
	suggestPath = "/suggest/"
)

// AnalyzeParams parameterizes one analysis submission.
// Tasks are JSON objects sent exactly as given; see tasks.ParseJSON and tasks.Encode.
type AnalyzeParams struct {
	Tasks    []json.RawMessage
	UseAI    bool
	Strategy string
}

// NormalizeBaseURL strips trailing slashes and a trailing endpoint segment
// ("/analyze" or "/suggest") so paths are never doubled.
//
// Expectations:
//   - Strips trailing slashes
//   - Strips a trailing "/analyze" or "/suggest" segment, with or without slash
//   - Returns the URL unchanged when neither suffix is present
//   - Returns "" for empty input
func NormalizeBaseURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	for _, suffix := range []string{"/analyze", "/suggest"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return s
}

// NewAnalyzeRequest builds POST {base}/analyze/?use_ai=..&strategy=.. with the
// task array as the JSON body.
//
// Expectations:
//   - Returns ErrEmptyBatch when p.Tasks is empty
//   - Body is the bare task array, not wrapped in an envelope; elements are not re-typed
//   - use_ai is serialized as "true"/"false"; strategy is passed through verbatim
//   - Sets Content-Type: application/json and a fresh X-Request-ID
func NewAnalyzeRequest(ctx context.Context, base string, p AnalyzeParams) (*http.Request, error) {
	if len(p.Tasks) == 0 {
		return nil, ErrEmptyBatch
	}

	body, err := json.Marshal(p.Tasks)
	if err != nil {
		return nil, fmt.Errorf("api: marshal tasks: %w", err)
	}

	q := url.Values{}
	q.Set("use_ai", strconv.FormatBool(p.UseAI))
	q.Set("strategy", p.Strategy)
	target := NormalizeBaseURL(base) + analyzePath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// NewSuggestRequest builds GET {base}/suggest/ with no body.
func NewSuggestRequest(ctx context.Context, base string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeBaseURL(base)+suggestPath, nil)
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}
