// Package executor runs a linked program against a primitive registry: it
// holds the global state valuation G, drives one transition at a time for a
// requested role, expands composite events down to their terminal
// primitives, and applies each transition frame's atomic commit/rollback
// semantics. Structurally it is a tree-walking interpreter (walk the
// program, dispatch on node kind, maintain a scope of named cells) aimed
// at a transition frame instead of a statement block.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/stl-lang/stlconform/internal/ast"
	"github.com/stl-lang/stlconform/internal/errors"
	"github.com/stl-lang/stlconform/internal/linker"
	"github.com/stl-lang/stlconform/internal/registry"
	"github.com/stl-lang/stlconform/internal/value"
)

// frameState is the transition frame's lifecycle.
type frameState int

const (
	frameInit frameState = iota
	frameRunning
	frameCommit
	frameRollback
	frameErrorCommit
	frameDone
)

func (s frameState) String() string {
	switch s {
	case frameRunning:
		return "RUNNING"
	case frameCommit:
		return "COMMIT"
	case frameRollback:
		return "ROLLBACK"
	case frameErrorCommit:
		return "ERROR_COMMIT"
	case frameDone:
		return "DONE"
	default:
		return "INIT"
	}
}

// Result reports what a Step call did.
type Result struct {
	Transition       string
	FinalState       string
	FailedEventIndex int // -1 unless an event in the frame failed recoverably
}

// frameEnv is the cell environment backing a transition's params and
// locals, and (transiently) a composite event's own params.
type frameEnv struct {
	cells map[string]*value.Value
}

func newFrameEnv() *frameEnv {
	return &frameEnv{cells: map[string]*value.Value{}}
}

func (e *frameEnv) get(name string) (*value.Value, bool) {
	v, ok := e.cells[name]
	return v, ok
}

func (e *frameEnv) set(name string, v *value.Value) {
	e.cells[name] = v
}

// Executor drives transitions for a single linked program.
type Executor struct {
	prog     *linker.Program
	registry *registry.Registry
	policy   Policy
	logger   hclog.Logger
	runID    string
	maxDepth int

	g map[string]string // StateInstance key -> current symbolic value name
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithLogger overrides the default no-op logger.
func WithLogger(l hclog.Logger) Option { return func(e *Executor) { e.logger = l } }

// WithPolicy overrides the default FirstPolicy transition-selection policy.
func WithPolicy(p Policy) Option { return func(e *Executor) { e.policy = p } }

// WithMaxDepth overrides the default composite-event expansion bound of 64.
func WithMaxDepth(n int) Option { return func(e *Executor) { e.maxDepth = n } }

// New builds an Executor for prog, dispatching primitives through reg.
func New(prog *linker.Program, reg *registry.Registry, opts ...Option) *Executor {
	e := &Executor{
		prog:     prog,
		registry: reg,
		policy:   FirstPolicy{},
		logger:   hclog.NewNullLogger(),
		runID:    uuid.NewString(),
		maxDepth: 64,
		g:        map[string]string{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID returns the correlation id attached to every log line this
// Executor emits.
func (e *Executor) RunID() string { return e.runID }

// SetState seeds G directly, for scenario setup ahead of the first Step
// (e.g. establishing an initial kNotConnected instance).
func (e *Executor) SetState(module string, ref *ast.StateRef) error {
	key, err := e.stateInstanceKey(context.Background(), module, newFrameEnv(), ref)
	if err != nil {
		return err
	}
	e.g[key] = ref.Value.Name
	return nil
}

// StateValue reports the current symbolic value of a StateInstance, if G
// maps it to one.
func (e *Executor) StateValue(module, stateName string, args []*value.Value) (string, bool) {
	decl, ok := e.prog.ResolveState(module, stateName)
	if !ok {
		return "", false
	}
	v, ok := e.g[stateKey(qualify(e.prog, module, decl.Name.Name), args)]
	return v, ok
}

// Step selects and fires one firable transition whose first event's source
// role is role, binding its declared params to args. It returns StuckError
// if no candidate transition is firable.
func (e *Executor) Step(ctx context.Context, module, role string, args []*value.Value) (*Result, error) {
	// A cancellation requested between steps takes effect here; a step
	// already in flight runs to completion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []*ast.TransitionDecl
	for _, name := range e.prog.TransitionOrder {
		td := e.prog.Transitions[name]
		if len(td.Events) == 0 || td.Events[0].Source.Name != role {
			continue
		}
		if len(td.Params) != len(args) {
			continue
		}
		candidates = append(candidates, td)
	}

	var firable []*ast.TransitionDecl
	unmet := map[string][]string{}
	for _, td := range candidates {
		env := e.bindParams(td.Params, args)
		ok, reasons, err := e.evalPreStates(ctx, module, env, td.PreStates)
		if err != nil {
			return nil, err
		}
		if ok {
			firable = append(firable, td)
		} else {
			unmet[td.Name.Name] = reasons
		}
	}

	if len(firable) == 0 {
		return nil, &StuckError{Role: role, ReachablePreconditions: reachablePreconditionReport(candidates, unmet)}
	}

	chosen := e.policy.Choose(firable)
	return e.fire(ctx, module, chosen, args)
}

func (e *Executor) bindParams(params []*ast.EventParam, args []*value.Value) *frameEnv {
	env := newFrameEnv()
	for i, p := range params {
		if i < len(args) {
			env.set(p.Name.Name, args[i])
		}
	}
	return env
}

// fire runs a transition already known to be firable: dispatches its
// events in order, applies post_states on full success, and either
// error_states (if declared) or a rollback to the pre-fire G snapshot on a
// recoverable event failure.
func (e *Executor) fire(ctx context.Context, module string, td *ast.TransitionDecl, args []*value.Value) (*Result, error) {
	env := e.bindParams(td.Params, args)
	for _, l := range td.Locals {
		env.set(l.Name.Name, value.NewNull())
	}

	snapshot := make(map[string]string, len(e.g))
	for k, v := range e.g {
		snapshot[k] = v
	}

	state := frameRunning
	e.logf(hclog.Debug, "transition frame started", "transition", td.Name.Name, "state", state.String())

	failedIdx := -1
	var failReason string

	for idx, evCall := range td.Events {
		argVals := make([]*value.Value, len(evCall.Args))
		for i, a := range evCall.Args {
			v, err := e.eval(ctx, module, env, a)
			if err != nil {
				return nil, fmt.Errorf("transition %q: event %d: %w", td.Name.Name, idx, err)
			}
			argVals[i] = v
		}

		e.logf(hclog.Info, "event dispatch",
			"transition", td.Name.Name, "event_index", idx,
			"role", evCall.Source.Name, "event", evCall.Event.Name)

		outcome, err := e.invokeEvent(ctx, module, evCall.Event.Name, argVals, evCall.Source.Name, evCall.Target.Name, 0, errors.NewStackTrace())
		if err != nil {
			return nil, err
		}

		switch outcome.Outcome {
		case registry.OutcomeOK:
			continue
		case registry.OutcomeFatal:
			return nil, &FatalError{Reason: outcome.Reason}
		case registry.OutcomeRecoverableFail:
			failedIdx = idx
			failReason = outcome.Reason
		}
		break
	}

	if failedIdx == -1 {
		if td.PostStates != nil {
			if err := e.applyStateSet(ctx, module, env, td.PostStates); err != nil {
				return nil, err
			}
		}
		state = frameCommit
		e.logf(hclog.Debug, "transition frame committed", "transition", td.Name.Name, "state", state.String())
		state = frameDone
		return &Result{Transition: td.Name.Name, FinalState: state.String(), FailedEventIndex: -1}, nil
	}

	if td.ErrorStates != nil {
		if err := e.applyStateSet(ctx, module, env, td.ErrorStates); err != nil {
			return nil, err
		}
		state = frameErrorCommit
	} else {
		e.g = snapshot
		state = frameRollback
	}
	e.logf(hclog.Warn, "transition frame failed", "transition", td.Name.Name, "state", state.String(), "event_index", failedIdx, "reason", failReason)
	state = frameDone

	return &Result{Transition: td.Name.Name, FinalState: state.String(), FailedEventIndex: failedIdx},
		&EventFailureError{Transition: td.Name.Name, EventIndex: failedIdx, Reason: failReason}
}

func (e *Executor) logf(level hclog.Level, msg string, keyvals ...interface{}) {
	e.logger.Log(level, msg, append(keyvals, "run_id", e.runID)...)
}

// invokeEvent resolves name and either invokes its registered handler
// (EventBodyExternal), recurses into its callee with substituted arguments
// (EventBodyComposite), or succeeds trivially (EventBodyNoOp). trace
// accumulates one errors.StackFrame per composite expansion so a
// DepthExceededError can report the full chain of calls that led to the
// bound being hit.
func (e *Executor) invokeEvent(ctx context.Context, module, name string, args []*value.Value, sourceRole, targetRole string, depth int, trace errors.StackTrace) (registry.EventResult, error) {
	decl, ok := e.prog.ResolveEvent(module, name)
	if !ok {
		return registry.EventResult{}, fmt.Errorf("undefined event %q", name)
	}

	if depth >= e.maxDepth {
		return registry.EventResult{}, &DepthExceededError{Event: name, Bound: e.maxDepth, Trace: append(trace, errors.NewStackFrame(name, &decl.Token.Pos))}
	}

	switch decl.BodyKind {
	case ast.EventBodyNoOp:
		return registry.OK(), nil

	case ast.EventBodyExternal:
		handler, err := e.registry.RequireEvent(decl.External.Value)
		if err != nil {
			return registry.EventResult{}, &RegistryError{Name: decl.External.Value}
		}
		return handler(ctx, sourceRole, targetRole, payloadFromArgs(args)), nil

	case ast.EventBodyComposite:
		inner := e.bindParams(decl.Params, args)
		nextArgs := make([]*value.Value, len(decl.Args))
		for i, a := range decl.Args {
			v, err := e.eval(ctx, module, inner, a)
			if err != nil {
				return registry.EventResult{}, err
			}
			nextArgs[i] = v
		}
		frame := errors.NewStackFrame(name, &decl.Token.Pos)
		return e.invokeEvent(ctx, module, decl.Callee.Name, nextArgs, sourceRole, targetRole, depth+1, append(trace, frame))

	default:
		return registry.EventResult{}, fmt.Errorf("event %q: unknown body kind", name)
	}
}

// payloadFromArgs collapses an event's evaluated arguments into the single
// payload value an EventHandler receives: nil for none, the value itself
// for one, or an untyped array wrapping all of them for more than one.
func payloadFromArgs(args []*value.Value) *value.Value {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		arr := value.NewArray("")
		for _, a := range args {
			arr.Append(a)
		}
		return arr
	}
}

// eval computes the runtime Value of expr against env, invoking qualifiers
// through the registry and applying any `-> var` qualifier-write target.
func (e *Executor) eval(ctx context.Context, module string, env *frameEnv, expr ast.Expr) (*value.Value, error) {
	switch ex := expr.(type) {
	case *ast.IntLiteral:
		return value.NewInt(ex.Value), nil
	case *ast.StringLiteral:
		return value.NewString(ex.Value), nil
	case *ast.BoolLiteral:
		return value.NewBool(ex.Value), nil

	case *ast.Ident:
		if v, ok := env.get(ex.Name); ok {
			return v, nil
		}
		if c, ok := e.prog.ResolveConst(module, ex.Name); ok {
			return e.eval(ctx, module, newFrameEnv(), c.Value)
		}
		return nil, fmt.Errorf("undefined local variable or const %q", ex.Name)

	case *ast.QualifierCall:
		decl, ok := e.prog.ResolveQualifier(module, ex.Name.Name)
		if !ok {
			return nil, fmt.Errorf("undefined qualifier %q", ex.Name.Name)
		}
		args := make([]*value.Value, len(ex.Args))
		for i, a := range ex.Args {
			v, err := e.eval(ctx, module, env, a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		q, err := e.registry.RequireQualifier(decl.External.Value)
		if err != nil {
			return nil, &RegistryError{Name: decl.External.Value}
		}
		return q(ctx, args)

	case *ast.ObjectLiteral:
		return e.evalObjectLiteral(ctx, module, env, ex)

	case *ast.ArrayLiteral:
		decl, ok := e.prog.ResolveMessage(module, ex.Type.Name)
		if !ok {
			return nil, fmt.Errorf("undefined message %q", ex.Type.Name)
		}
		arr := value.NewArray(qualify(e.prog, module, decl.Name.Name))
		for _, el := range ex.Elements {
			v, err := e.evalObjectLiteral(ctx, module, env, el)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
		return arr, nil

	default:
		return nil, fmt.Errorf("cannot evaluate expression of type %T", expr)
	}
}

func (e *Executor) evalObjectLiteral(ctx context.Context, module string, env *frameEnv, lit *ast.ObjectLiteral) (*value.Value, error) {
	decl, ok := e.prog.ResolveMessage(module, lit.Type.Name)
	if !ok {
		return nil, fmt.Errorf("undefined message %q", lit.Type.Name)
	}
	msg := value.NewMessage(qualify(e.prog, module, decl.Name.Name))
	vals := make(map[string]*value.Value, len(lit.Fields))
	for _, fa := range lit.Fields {
		v, err := e.eval(ctx, module, env, fa.Value)
		if err != nil {
			return nil, err
		}
		vals[fa.Name.Name] = v
		if fa.WriteVar != nil {
			env.set(fa.WriteVar.Name, v)
		}
	}
	// Fields are set in declaration order; fields the declaration does not
	// list (an external message without a schema) follow in literal order.
	for _, f := range decl.Fields {
		if v, ok := vals[f.Name.Name]; ok {
			msg.SetField(f.Name.Name, v)
		}
	}
	for _, fa := range lit.Fields {
		msg.SetField(fa.Name.Name, vals[fa.Name.Name])
	}
	return msg, nil
}

// evalPreStates reports whether any OR-branch of sets is fully satisfied
// by the current G, along with a per-branch unmet-ref description used to
// build a Stuck report when none are.
func (e *Executor) evalPreStates(ctx context.Context, module string, env *frameEnv, sets []*ast.StateSet) (bool, []string, error) {
	if len(sets) == 0 {
		return true, nil, nil
	}
	var reasons []string
	for _, set := range sets {
		ok, reason, err := e.stateSetSatisfied(ctx, module, env, set)
		if err != nil {
			return false, nil, err
		}
		if ok {
			return true, nil, nil
		}
		reasons = append(reasons, reason)
	}
	return false, reasons, nil
}

func (e *Executor) stateSetSatisfied(ctx context.Context, module string, env *frameEnv, set *ast.StateSet) (bool, string, error) {
	for _, ref := range set.Refs {
		key, err := e.stateInstanceKey(ctx, module, env, ref)
		if err != nil {
			return false, "", err
		}
		cur, ok := e.g[key]
		if !ok || cur != ref.Value.Name {
			want := fmt.Sprintf("%s -> %s", ref.State.Name, ref.Value.Name)
			have := "unmapped"
			if ok {
				have = cur
			}
			return false, fmt.Sprintf("%s (currently %s)", want, have), nil
		}
	}
	return true, "", nil
}

// applyStateSet commits set's assignments into G.
func (e *Executor) applyStateSet(ctx context.Context, module string, env *frameEnv, set *ast.StateSet) error {
	for _, ref := range set.Refs {
		key, err := e.stateInstanceKey(ctx, module, env, ref)
		if err != nil {
			return err
		}
		e.g[key] = ref.Value.Name
	}
	return nil
}

func (e *Executor) stateInstanceKey(ctx context.Context, module string, env *frameEnv, ref *ast.StateRef) (string, error) {
	decl, ok := e.prog.ResolveState(module, ref.State.Name)
	if !ok {
		return "", fmt.Errorf("undefined state %q", ref.State.Name)
	}
	params := make([]*value.Value, len(ref.Args))
	for i, a := range ref.Args {
		v, err := e.eval(ctx, module, env, a)
		if err != nil {
			return "", err
		}
		params[i] = v
	}
	return stateKey(qualify(e.prog, module, decl.Name.Name), params), nil
}

// stateKey builds a canonical G key from a StateDecl's fully-qualified name
// and its resolved parameter values.
func stateKey(fqName string, params []*value.Value) string {
	var sb strings.Builder
	sb.WriteString(fqName)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(scalarRepr(p))
	}
	sb.WriteByte(')')
	return sb.String()
}

func scalarRepr(v *value.Value) string {
	if v == nil {
		return "null"
	}
	switch v.Kind() {
	case value.KindInt:
		return fmt.Sprintf("%d", v.IntValue())
	case value.KindBool:
		return fmt.Sprintf("%t", v.BoolValue())
	case value.KindString:
		return v.StringValue()
	default:
		return v.Kind().String()
	}
}

func qualify(prog *linker.Program, module, name string) string {
	if _, ok := prog.States[module+"::"+name]; ok {
		return module + "::" + name
	}
	if _, ok := prog.Messages[module+"::"+name]; ok {
		return module + "::" + name
	}
	return name
}

// reachablePreconditionReport lists, for every non-firable candidate, the
// first unmet state ref of each pre_states branch, joined with " OR "; this
// is the reachable-precondition report a StuckError carries.
func reachablePreconditionReport(candidates []*ast.TransitionDecl, unmet map[string][]string) []string {
	var report []string
	for _, td := range candidates {
		reasons, ok := unmet[td.Name.Name]
		if !ok {
			continue
		}
		report = append(report, fmt.Sprintf("%s: unmet %s", td.Name.Name, strings.Join(reasons, " OR ")))
	}
	return report
}
