package runner

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// ClassFailure is the class of failures recorded through T rather than raised by a panic.
const ClassFailure = "failure"

// Frame is one entry of a failure trace.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Failure is a failed test described as data. It survives serialization, so a
// failure raised in another process keeps the identity it had where it was raised.
type Failure struct {
	Class   string
	Code    int
	File    string
	Line    int
	Message string
	Trace   []Frame

	// Remote is set on failures reconstructed from an isolated run.
	Remote bool
}

func (f *Failure) Error() string {
	return f.Message
}

// Location renders file:line, or "" when the failure has no source position.
func (f *Failure) Location() string {
	if f.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}

type coder interface {
	Code() int
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FromError builds a Failure for err. Stack traces recorded by github.com/pkg/errors
// take precedence over the caller's stack, which is captured skip frames above FromError.
func FromError(err error, skip int) *Failure {
	if f, ok := err.(*Failure); ok {
		return f
	}

	f := &Failure{
		Class:   fmt.Sprintf("%T", errors.Cause(err)),
		Message: err.Error(),
	}

	var c coder
	if errors.As(err, &c) {
		f.Code = c.Code()
	}

	var st stackTracer
	if errors.As(err, &st) {
		f.Trace = framesFromStack(st.StackTrace())
	} else {
		f.Trace = userFrames(callers(skip + 1))
	}
	f.locate()
	return f
}

// FromPanic builds a Failure for a recovered panic value. It must be called from the
// deferred function that recovered v so the panic site is still on the stack.
func FromPanic(v any) *Failure {
	if err, ok := v.(error); ok {
		var st stackTracer
		if !errors.As(err, &st) {
			f := FromError(err, 0)
			f.Trace = userFrames(panicFrames(callers(1)))
			f.locate()
			return f
		}
		return FromError(err, 0)
	}

	f := &Failure{
		Class:   fmt.Sprintf("%T", v),
		Message: fmt.Sprint(v),
		Trace:   userFrames(panicFrames(callers(1))),
	}
	f.locate()
	return f
}

func newFailure(message string, skip int) *Failure {
	f := &Failure{
		Class:   ClassFailure,
		Message: message,
		Trace:   userFrames(callers(skip + 1)),
	}
	f.locate()
	return f
}

func (f *Failure) locate() {
	if len(f.Trace) > 0 {
		f.File = f.Trace[0].File
		f.Line = f.Trace[0].Line
	}
}

func callers(skip int) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []Frame
	for {
		frame, more := frames.Next()
		out = append(out, Frame{Function: frame.Function, File: frame.File, Line: frame.Line})
		if !more {
			break
		}
	}
	return out
}

// panicFrames drops everything up to and including the runtime's panic machinery.
func panicFrames(frames []Frame) []Frame {
	for i, fr := range frames {
		if fr.Function != "runtime.gopanic" {
			continue
		}
		j := i + 1
		for j < len(frames) && strings.HasPrefix(frames[j].Function, "runtime.") {
			j++
		}
		return frames[j:]
	}
	return frames
}

var runnerDir = func() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}()

// userFrames strips frames belonging to the runner itself, testify and the Go
// runtime's test harness, leaving the frames that describe the author's code.
func userFrames(frames []Frame) []Frame {
	out := make([]Frame, 0, len(frames))
	for _, fr := range frames {
		if internalFrame(fr) {
			continue
		}
		out = append(out, fr)
	}
	return out
}

func internalFrame(fr Frame) bool {
	switch {
	case fr.File == "":
		return true
	case filepath.Dir(fr.File) == runnerDir && !strings.HasSuffix(fr.File, "_test.go"):
		return true
	case strings.HasPrefix(fr.Function, "github.com/stretchr/testify/"):
		return true
	case strings.HasPrefix(fr.Function, "runtime."), strings.HasPrefix(fr.Function, "testing."):
		return true
	}
	return false
}

func framesFromStack(st errors.StackTrace) []Frame {
	out := make([]Frame, 0, len(st))
	for _, f := range st {
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pc)
		out = append(out, Frame{Function: fn.Name(), File: file, Line: line})
	}
	return userFrames(out)
}
