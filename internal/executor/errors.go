package executor

import (
	"fmt"

	"github.com/stl-lang/stlconform/internal/errors"
)

// StuckError reports that the driver requested a step for a role with no
// firable transition. ReachablePreconditions names, for each candidate
// transition that did not fire, the state-instance descriptions that were
// not currently satisfied.
type StuckError struct {
	Role                   string
	ReachablePreconditions []string
}

func (e *StuckError) Error() string {
	return fmt.Sprintf("stuck: role %q has no firable transition", e.Role)
}

// DepthExceededError reports that composite-event expansion exceeded the
// configured bound. Trace names every composite call that was entered en
// route to the bound, oldest first.
type DepthExceededError struct {
	Event string
	Bound int
	Trace errors.StackTrace
}

func (e *DepthExceededError) Error() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("event expansion exceeded depth %d while expanding %q", e.Bound, e.Event)
	}
	return fmt.Sprintf("event expansion exceeded depth %d while expanding %q:\n%s", e.Bound, e.Event, e.Trace.String())
}

// EventFailureError reports a recoverable primitive failure. The
// transition's G update (error_states applied, or rolled back) has already
// happened by the time this error is returned.
type EventFailureError struct {
	Transition string
	EventIndex int
	Reason     string
}

func (e *EventFailureError) Error() string {
	return fmt.Sprintf("transition %q: event %d failed: %s", e.Transition, e.EventIndex, e.Reason)
}

// RegistryError reports that an `external` name used by the program has no
// registered implementation; fatal for the run.
type RegistryError struct {
	Name string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("no primitive registered for external name %q", e.Name)
}

// FatalError reports a primitive's fatal result or an invariant violation;
// aborts the run.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "fatal: " + e.Reason }
