package runner

import (
	"fmt"
)

// Func is the body of a test, a step or a hook.
type Func func(t *T)

// failNow unwinds a body after T.FailNow. It never escapes Catch.
type failNow struct{}

// T is handed to every test body. It satisfies the TestingT interfaces of
// testify's assert and require packages.
type T struct {
	failure *Failure
}

func newT() *T {
	return &T{}
}

// Failure returns the first failure recorded on t.
func (t *T) Failure() *Failure {
	return t.failure
}

func (t *T) Failed() bool {
	return t.failure != nil
}

func (t *T) Helper() {}

func (t *T) Errorf(format string, args ...any) {
	t.record(newFailure(fmt.Sprintf(format, args...), 1))
}

func (t *T) Error(args ...any) {
	if len(args) == 1 {
		if err, ok := args[0].(error); ok {
			t.record(FromError(err, 1))
			return
		}
	}
	t.record(newFailure(fmt.Sprint(args...), 1))
}

func (t *T) Fail() {
	if t.failure == nil {
		t.record(newFailure("test failed", 1))
	}
}

func (t *T) FailNow() {
	if t.failure == nil {
		t.record(newFailure("test failed", 1))
	}
	panic(failNow{})
}

func (t *T) Fatalf(format string, args ...any) {
	t.record(newFailure(fmt.Sprintf(format, args...), 1))
	panic(failNow{})
}

func (t *T) Fatal(args ...any) {
	if len(args) == 1 {
		if err, ok := args[0].(error); ok {
			t.record(FromError(err, 1))
			panic(failNow{})
		}
	}
	t.record(newFailure(fmt.Sprint(args...), 1))
	panic(failNow{})
}

// Raise fails the test with f exactly as given and stops the body.
func (t *T) Raise(f *Failure) {
	t.record(f)
	panic(failNow{})
}

// Catch runs fn and returns the failure it caused, if any. Panics are recovered,
// so the caller always regains control.
func (t *T) Catch(fn Func) (failure *Failure) {
	if fn == nil {
		return nil
	}
	before := t.failure
	defer func() {
		if v := recover(); v != nil {
			failure = t.recovered(v)
			return
		}
		if t.failure != before {
			failure = t.failure
		}
	}()
	fn(t)
	return nil
}

func (t *T) recovered(v any) *Failure {
	switch v := v.(type) {
	case failNow:
		return t.failure
	case *Failure:
		t.record(v)
		return v
	default:
		f := FromPanic(v)
		t.record(f)
		return f
	}
}

func (t *T) record(f *Failure) {
	if t.failure == nil {
		t.failure = f
	}
}
