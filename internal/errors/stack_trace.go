package errors

import (
	"fmt"
	"strings"

	"github.com/stl-lang/stlconform/internal/token"
)

// StackFrame is one frame in a composite-event expansion trace: the event
// being expanded and where its call appears in source, so a depth-bound
// report can show the full chain of composite calls that led to the bound
// being hit.
type StackFrame struct {
	Position  *token.Position
	EventName string
}

// String formats the frame as "name [line: L, column: C]", or just the
// event name when no position is available (the outermost transition-level
// call has none).
func (sf StackFrame) String() string {
	if sf.Position == nil {
		return sf.EventName
	}
	return fmt.Sprintf("%s [line: %d, column: %d]", sf.EventName, sf.Position.Line, sf.Position.Column)
}

// StackTrace is a composite-event expansion trace, oldest call first.
type StackTrace []StackFrame

// String renders the trace newest-call-first, one frame per line: the call
// that actually hit the depth bound reads first, followed by the chain of
// composite calls that led to it.
func (st StackTrace) String() string {
	if len(st) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := len(st) - 1; i >= 0; i-- {
		sb.WriteString(st[i].String())
		if i > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// NewStackFrame builds a frame for the named event's call site.
func NewStackFrame(eventName string, position *token.Position) StackFrame {
	return StackFrame{EventName: eventName, Position: position}
}

// NewStackTrace returns an empty trace.
func NewStackTrace() StackTrace {
	return make(StackTrace, 0)
}
