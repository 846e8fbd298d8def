package isolation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chriserin/ftspec/internal/runner"
)

// TraceFrame is one stack frame of a recorded failure.
type TraceFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Record is a failure as it crosses the process boundary.
type Record struct {
	Class   string       `json:"class"`
	Code    int          `json:"code"`
	File    string       `json:"file"`
	Line    int          `json:"line"`
	Message string       `json:"message"`
	Trace   []TraceFrame `json:"trace"`
}

// Payload is everything an isolated child reports: the failures of its suite
// keyed by test index. A test without an entry passed.
type Payload struct {
	Failures map[int]Record `json:"failures"`
}

var (
	errEmptyPayload    = errors.New("empty payload")
	errMissingFailures = errors.New("payload has no failures field")
)

func RecordFrom(f *runner.Failure) Record {
	r := Record{
		Class:   f.Class,
		Code:    f.Code,
		File:    f.File,
		Line:    f.Line,
		Message: f.Message,
		Trace:   make([]TraceFrame, 0, len(f.Trace)),
	}
	for _, fr := range f.Trace {
		r.Trace = append(r.Trace, TraceFrame{Function: fr.Function, File: fr.File, Line: fr.Line})
	}
	return r
}

// Failure reconstructs the failure exactly as it was recorded in the child.
func (r Record) Failure() *runner.Failure {
	f := &runner.Failure{
		Class:   r.Class,
		Code:    r.Code,
		File:    r.File,
		Line:    r.Line,
		Message: r.Message,
		Remote:  true,
	}
	for _, fr := range r.Trace {
		f.Trace = append(f.Trace, runner.Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
	}
	return f
}

func Encode(p Payload) ([]byte, error) {
	if p.Failures == nil {
		p.Failures = map[int]Record{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}

// Decode parses a payload. An empty read or a document without the failures
// envelope means the child never reported and is an error.
func Decode(data []byte) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, errEmptyPayload
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decoding payload: %w", err)
	}
	if p.Failures == nil {
		return Payload{}, errMissingFailures
	}
	return p, nil
}
