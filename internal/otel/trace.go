package otel

import (
	"fmt"
	"os"
	"sync/atomic"
)

// traceEnabled is set once at package init from UNIVERSAL_TRACE.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("UNIVERSAL_TRACE") != "")
}

// TraceEnabled reports whether UNIVERSAL_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// setTraceEnabled overrides the flag for tests.
func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}

// TraceMsg journals the dynamic type of a UI message when tracing is on.
func TraceMsg(l *Logger, comp string, msg any) {
	if !TraceEnabled() || l == nil {
		return
	}
	l.Emit(Event{Level: LevelDebug, Kind: KindMsgReceived, Comp: comp, Msg: fmt.Sprintf("%T", msg)})
}
