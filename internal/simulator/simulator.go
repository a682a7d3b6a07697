// Package simulator implements the small-step agent interpreter: it
// reduces a parsed AST against a Blackboard façade one primitive at a
// time until the agent succeeds (reduces to Empty), deadlocks (a step
// makes no progress and its residual equals its input), or a primitive
// surfaces a runtime error.
package simulator

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/haricheung/agentic-shell/internal/ast"
)

// Coin abstracts the fair-coin source the simulator uses to pick
// interleaving order for || and +. Production uses CryptoCoin; tests
// inject a scripted sequence for reproducibility.
type Coin interface {
	Flip() bool
}

// CryptoCoin draws bits from crypto/rand. It is not chosen for
// cryptographic strength — any unbiased source would do — but
// crypto/rand avoids seeding a math/rand generator for what is a
// rarely-called, low-volume draw.
type CryptoCoin struct{}

func (CryptoCoin) Flip() bool {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false
	}
	return b[0]&1 == 1
}

// ScriptedCoin replays a fixed sequence of outcomes, cycling once
// exhausted. Tests use it to force a specific interleaving.
type ScriptedCoin struct {
	Outcomes []bool
	pos      int
}

func (c *ScriptedCoin) Flip() bool {
	if len(c.Outcomes) == 0 {
		return false
	}
	v := c.Outcomes[c.pos%len(c.Outcomes)]
	c.pos++
	return v
}

// Primitives is the set of store operations the simulator drives.
// *blackboard.Blackboard satisfies it; tests substitute a fake.
type Primitives interface {
	Tell(tok ast.Token) (bool, error)
	Ask(tok ast.Token) (bool, error)
	Get(tok ast.Token) (bool, error)
	Nask(tok ast.Token) (bool, error)
}

// Simulator reduces agent expressions against a Primitives façade.
type Simulator struct {
	facade Primitives
	coin   Coin
}

// New creates a Simulator bound to facade, using CryptoCoin for
// branch selection. Use NewWithCoin to inject a deterministic coin.
func New(facade Primitives) *Simulator {
	return NewWithCoin(facade, CryptoCoin{})
}

// NewWithCoin creates a Simulator with an explicit Coin, for
// reproducible tests.
func NewWithCoin(facade Primitives, coin Coin) *Simulator {
	return &Simulator{facade: facade, coin: coin}
}

// RuntimeError wraps a failure surfaced by the façade (typically a
// *queue.TaskError) while running an agent.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Run reduces expr by repeated small steps until it becomes Empty
// (true, nil), a step makes no progress and returns a residual
// structurally equal to its input (false, nil — deadlock), or a
// primitive surfaces an error (false, *RuntimeError). A step that makes
// no progress but rebuilds a ||/+ node in swapped order is stepped
// again from that residual. ctx is checked
// between steps so a long-running or looping agent can be cancelled.
func (s *Simulator) Run(ctx context.Context, expr ast.Expr) (bool, error) {
	current := expr
	for {
		if ast.IsEmpty(current) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, &RuntimeError{Err: ctx.Err()}
		default:
		}

		progressed, residual, err := s.step(current)
		if err != nil {
			return false, &RuntimeError{Err: err}
		}
		if !progressed && ast.Equal(residual, current) {
			return false, nil
		}
		if ast.IsEmpty(residual) {
			return true, nil
		}
		current = residual
	}
}

// step performs one small-step reduction of expr. The bool reports
// whether any primitive fired; the residual is the agent remaining
// after that reduction.
func (s *Simulator) step(expr ast.Expr) (bool, ast.Expr, error) {
	switch e := expr.(type) {
	case ast.Prim:
		return s.stepPrim(e)
	case ast.Node:
		switch e.Op {
		case ast.Seq:
			return s.stepSeq(e.Left, e.Right)
		case ast.Par:
			return s.stepPar(e.Left, e.Right)
		case ast.Choice:
			return s.stepChoice(e.Left, e.Right)
		}
	}
	panic(fmt.Sprintf("simulator: unreducible expression %v", expr))
}

func (s *Simulator) stepPrim(p ast.Prim) (bool, ast.Expr, error) {
	ok, err := s.execPrim(p.Kind, p.Token)
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, ast.Empty, nil
	}
	return false, p, nil
}

func (s *Simulator) execPrim(kind ast.Kind, tok ast.Token) (bool, error) {
	switch kind {
	case ast.Tell:
		return s.facade.Tell(tok)
	case ast.Ask:
		return s.facade.Ask(tok)
	case ast.Get:
		return s.facade.Get(tok)
	case ast.Nask:
		return s.facade.Nask(tok)
	default:
		panic("simulator: unknown primitive kind " + string(kind))
	}
}

func (s *Simulator) stepSeq(l, r ast.Expr) (bool, ast.Expr, error) {
	progressed, lRes, err := s.step(l)
	if err != nil {
		return false, nil, err
	}
	if !progressed {
		return false, ast.NewNode(ast.Seq, lRes, r), nil
	}
	if ast.IsEmpty(lRes) {
		return true, r, nil
	}
	return true, ast.NewNode(ast.Seq, lRes, r), nil
}

// stepPar tosses the coin to pick which side of || attempts first,
// then reduces in that (a, b) order. The residual is always rebuilt
// in the order actually chosen, not restored to the original (l, r)
// positions — a || is commutative, so this matches the reference
// reduction exactly and keeps the residual-equals-input property
// that deadlock detection relies on.
func (s *Simulator) stepPar(l, r ast.Expr) (bool, ast.Expr, error) {
	a, b := l, r
	if !s.coin.Flip() {
		a, b = r, l
	}

	progressedA, aRes, err := s.step(a)
	if err != nil {
		return false, nil, err
	}
	if progressedA {
		if ast.IsEmpty(aRes) {
			return true, b, nil
		}
		return true, ast.NewNode(ast.Par, aRes, b), nil
	}

	progressedB, bRes, err := s.step(b)
	if err != nil {
		return false, nil, err
	}
	if !progressedB {
		return false, ast.NewNode(ast.Par, aRes, bRes), nil
	}
	if ast.IsEmpty(bRes) {
		return true, aRes, nil
	}
	return true, ast.NewNode(ast.Par, aRes, bRes), nil
}

// stepChoice tosses the coin to pick which branch attempts first. The
// first branch to make any progress commits; the other is discarded
// entirely, never reduced again.
func (s *Simulator) stepChoice(l, r ast.Expr) (bool, ast.Expr, error) {
	a, b := l, r
	if !s.coin.Flip() {
		a, b = r, l
	}

	progressedA, aRes, err := s.step(a)
	if err != nil {
		return false, nil, err
	}
	if progressedA {
		return true, aRes, nil
	}

	progressedB, bRes, err := s.step(b)
	if err != nil {
		return false, nil, err
	}
	if !progressedB {
		return false, ast.NewNode(ast.Choice, aRes, bRes), nil
	}
	return true, bRes, nil
}
