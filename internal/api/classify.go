package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haricheung/taskrank/internal/types"
)

// SuggestFailureMessage is shown for any non-success answer from the suggestions endpoint.
const SuggestFailureMessage = "Failed to fetch suggestions (database might be empty or reset)"

// maxBodyEcho caps how much of an unrecognized body is echoed back to the user.
const maxBodyEcho = 300

// Kind classifies the outcome of one request.
type Kind string

const (
	KindSuccess             Kind = "success"
	KindStructuredFailure   Kind = "structured_failure"
	KindUnstructuredFailure Kind = "unstructured_failure"
	KindTransportFailure    Kind = "transport_failure"
)

// Path identifies which endpoint produced a response; failure wording differs per path.
type Path string

const (
	PathAnalyze Path = "analyze"
	PathSuggest Path = "suggest"
)

// Outcome is the single result of a request: results on success, a message otherwise.
type Outcome struct {
	Kind    Kind
	Results []types.AnalysisResult
	Message string
}

// OK reports whether the outcome carries results.
func (o Outcome) OK() bool { return o.Kind == KindSuccess }

// Classify maps an HTTP status and raw body to an Outcome.
//
// Expectations:
//   - 2xx with an array body → KindSuccess, results in received order
//   - 2xx with an undecodable body → KindTransportFailure with the decode error text
//   - non-2xx with {"error": "..."} → KindStructuredFailure; details array appended as ": d1, d2"
//   - non-2xx with {"error": "..."} and non-array or empty details → message is error alone
//   - non-2xx with any other body → KindUnstructuredFailure echoing the body
//   - non-2xx with an empty body → KindUnstructuredFailure naming the status code
//   - PathSuggest failures always carry SuggestFailureMessage
//   - Message is never empty for a failure
func Classify(path Path, status int, body []byte) Outcome {
	if status >= 200 && status < 300 {
		var results []types.AnalysisResult
		if err := json.Unmarshal(body, &results); err != nil {
			return TransportFailure(fmt.Errorf("invalid response body: %w", err))
		}
		if results == nil {
			results = []types.AnalysisResult{}
		}
		return Outcome{Kind: KindSuccess, Results: results}
	}

	if path == PathSuggest {
		return Outcome{Kind: KindUnstructuredFailure, Message: SuggestFailureMessage}
	}

	if msg, ok := structuredMessage(body); ok {
		return Outcome{Kind: KindStructuredFailure, Message: msg}
	}
	return Outcome{Kind: KindUnstructuredFailure, Message: unstructuredMessage(status, body)}
}

// TransportFailure wraps an error raised before a response could be read.
func TransportFailure(err error) Outcome {
	msg := "request failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Outcome{Kind: KindTransportFailure, Message: msg}
}

// structuredMessage returns the ErrorResponse message when body has that shape.
func structuredMessage(body []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	rawErr, ok := fields["error"]
	if !ok {
		return "", false
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(rawErr, &er.Error); err != nil || er.Error == "" {
		return "", false
	}

	var details []json.RawMessage
	if raw, ok := fields["details"]; ok && json.Unmarshal(raw, &details) == nil {
		for _, d := range details {
			er.Details = append(er.Details, detailText(d))
		}
	}
	if len(er.Details) == 0 {
		return er.Error, true
	}
	return er.Error + ": " + strings.Join(er.Details, ", "), true
}

// detailText renders one details entry: strings as-is, arrays flattened with
// "," (a cycle [1,2,1] reads "1,2,1"), null as "", anything else as compact JSON.
func detailText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		if list == nil {
			return ""
		}
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = detailText(item)
		}
		return strings.Join(parts, ",")
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return string(raw)
}

func unstructuredMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Sprintf("request failed: HTTP %d", status)
	}
	var buf bytes.Buffer
	if json.Valid(trimmed) && json.Compact(&buf, trimmed) == nil {
		return clip(buf.String(), maxBodyEcho)
	}
	return clip(string(trimmed), maxBodyEcho)
}

// clip truncates s to at most n runes, appending "…" if trimmed.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
