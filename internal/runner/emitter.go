package runner

// Emitter delivers runner events to listeners synchronously, in registration order.
// A listener added while an event is being delivered sees the next event, not the
// current one.
type Emitter struct {
	runnerStart []func()
	runnerEnd   []func(*Result)
	suiteStart  []func(*Suite)
	suiteEnd    []func(*Suite)
	testEnd     []func(*TestResult)
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) OnRunnerStart(fn func())        { e.runnerStart = append(e.runnerStart, fn) }
func (e *Emitter) OnRunnerEnd(fn func(*Result))   { e.runnerEnd = append(e.runnerEnd, fn) }
func (e *Emitter) OnSuiteStart(fn func(*Suite))   { e.suiteStart = append(e.suiteStart, fn) }
func (e *Emitter) OnSuiteEnd(fn func(*Suite))     { e.suiteEnd = append(e.suiteEnd, fn) }
func (e *Emitter) OnTestEnd(fn func(*TestResult)) { e.testEnd = append(e.testEnd, fn) }

func (e *Emitter) emitRunnerStart() {
	for _, fn := range e.runnerStart {
		fn()
	}
}

func (e *Emitter) emitRunnerEnd(r *Result) {
	for _, fn := range e.runnerEnd {
		fn(r)
	}
}

func (e *Emitter) emitSuiteStart(s *Suite) {
	for _, fn := range e.suiteStart {
		fn(s)
	}
}

func (e *Emitter) emitSuiteEnd(s *Suite) {
	for _, fn := range e.suiteEnd {
		fn(s)
	}
}

func (e *Emitter) emitTestEnd(r *TestResult) {
	for _, fn := range e.testEnd {
		fn(r)
	}
}
