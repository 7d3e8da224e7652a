package executor

import (
	"math/rand"

	"github.com/stl-lang/stlconform/internal/ast"
)

// Policy picks one transition to fire among the set that are currently
// firable for the requested role. The zero-value run uses FirstPolicy.
type Policy interface {
	Choose(candidates []*ast.TransitionDecl) *ast.TransitionDecl
}

// FirstPolicy always chooses the first firable candidate in declaration
// order, matching a single-threaded conformance run driven step by step.
type FirstPolicy struct{}

func (FirstPolicy) Choose(candidates []*ast.TransitionDecl) *ast.TransitionDecl {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

// SeededPolicy chooses uniformly among the firable candidates using a
// deterministic, caller-supplied seed, so a failing run can be reproduced
// by re-running with the same seed.
type SeededPolicy struct {
	rng *rand.Rand
}

// NewSeededPolicy builds a SeededPolicy whose choices are reproducible for
// a given seed.
func NewSeededPolicy(seed int64) *SeededPolicy {
	return &SeededPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *SeededPolicy) Choose(candidates []*ast.TransitionDecl) *ast.TransitionDecl {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[p.rng.Intn(len(candidates))]
}
