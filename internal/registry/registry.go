// Package registry implements the primitive registry: the injected map
// from dotted external names to host-provided callables that the executor
// invokes for terminal events, qualifiers, and bytestream/protobuf codecs.
// The registry is populated once at startup and is read-only for the
// remainder of a run.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/stl-lang/stlconform/internal/value"
)

// Outcome is the three-way result of an external event handler invocation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRecoverableFail
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRecoverableFail:
		return "recoverable_fail"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// EventResult is the outcome of invoking an external event handler.
type EventResult struct {
	Outcome Outcome
	Reason  string
}

// OK reports a successful event invocation.
func OK() EventResult { return EventResult{Outcome: OutcomeOK} }

// RecoverableFail reports a recoverable failure consumed by the owning
// transition frame.
func RecoverableFail(reason string) EventResult {
	return EventResult{Outcome: OutcomeRecoverableFail, Reason: reason}
}

// FatalResult reports a framework-fatal condition that aborts the run.
func FatalResult(reason string) EventResult {
	return EventResult{Outcome: OutcomeFatal, Reason: reason}
}

// EventHandler implements an `external` terminal event: it receives the
// source and target role names plus the evaluated message payload (nil for
// a parameterless event) and reports the three-way outcome.
type EventHandler func(ctx context.Context, sourceRole, targetRole string, payload *value.Value) EventResult

// QualifierFunc implements an `external` qualifier: a value generator or
// validator invoked with its evaluated arguments.
type QualifierFunc func(ctx context.Context, args []*value.Value) (*value.Value, error)

// Registry is the concrete, thread-safe primitive registry. The zero value
// is not usable; use New.
type Registry struct {
	mu             sync.RWMutex
	events         map[string]EventHandler
	qualifiers     map[string]QualifierFunc
	bytestream     map[string]value.Codec
	protobuf       map[string]value.ProtobufCodec
	defaultEvent   EventHandler
	defaultQualify QualifierFunc
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		events:     map[string]EventHandler{},
		qualifiers: map[string]QualifierFunc{},
		bytestream: map[string]value.Codec{},
		protobuf:   map[string]value.ProtobufCodec{},
	}
}

// RegisterDefaultEvent installs a fallback EventHandler used by
// RequireEvent for any dotted name with no specific registration. Intended
// for debug/exploratory tooling (cmd/stlc's `run`), where the concrete set
// of external names a program declares isn't known ahead of time; a real
// conformance run should register every name explicitly instead.
func (r *Registry) RegisterDefaultEvent(h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultEvent = h
}

// RegisterDefaultQualifier mirrors RegisterDefaultEvent for qualifiers.
func (r *Registry) RegisterDefaultQualifier(q QualifierFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultQualify = q
}

// RegisterEvent binds the dotted external name to an event handler.
func (r *Registry) RegisterEvent(name string, h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[name] = h
}

// RegisterQualifier binds the dotted external name to a qualifier.
func (r *Registry) RegisterQualifier(name string, q QualifierFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qualifiers[name] = q
}

// RegisterBytestreamCodec binds the dotted external name to a bytestream Codec.
func (r *Registry) RegisterBytestreamCodec(name string, c value.Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytestream[name] = c
}

// RegisterProtobufCodec binds the dotted external name to a ProtobufCodec.
func (r *Registry) RegisterProtobufCodec(name string, c value.ProtobufCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protobuf[name] = c
}

// Event looks up the handler registered for name.
func (r *Registry) Event(name string) (EventHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.events[name]
	return h, ok
}

// Qualifier looks up the qualifier registered for name.
func (r *Registry) Qualifier(name string) (QualifierFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.qualifiers[name]
	return q, ok
}

// BytestreamCodec looks up the bytestream codec registered for name, and
// satisfies value.CodecResolver.
func (r *Registry) BytestreamCodec(name string) (value.Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bytestream[name]
	return c, ok
}

// ProtobufCodec looks up the protobuf codec registered for name, and
// satisfies value.ProtobufResolver.
func (r *Registry) ProtobufCodec(name string) (value.ProtobufCodec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.protobuf[name]
	return c, ok
}

// RequireEvent is a convenience used by the executor to turn a missing
// registration into a registry error, falling back to a
// RegisterDefaultEvent handler if one was installed.
func (r *Registry) RequireEvent(name string) (EventHandler, error) {
	h, ok := r.Event(name)
	if ok {
		return h, nil
	}
	r.mu.RLock()
	def := r.defaultEvent
	r.mu.RUnlock()
	if def != nil {
		return def, nil
	}
	return nil, fmt.Errorf("registry: no event handler registered for %q", name)
}

// RequireQualifier mirrors RequireEvent for qualifiers.
func (r *Registry) RequireQualifier(name string) (QualifierFunc, error) {
	q, ok := r.Qualifier(name)
	if ok {
		return q, nil
	}
	r.mu.RLock()
	def := r.defaultQualify
	r.mu.RUnlock()
	if def != nil {
		return def, nil
	}
	return nil, fmt.Errorf("registry: no qualifier registered for %q", name)
}
