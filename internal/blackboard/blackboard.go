// Package blackboard binds a store, task queue, and worker into the
// asynchronous tell/ask/get/nask façade that the simulator and any
// external client (REPL, TCP façade) program against.
package blackboard

import (
	"context"

	"github.com/haricheung/agentic-shell/internal/ast"
	"github.com/haricheung/agentic-shell/internal/queue"
	"github.com/haricheung/agentic-shell/internal/store"
	"github.com/haricheung/agentic-shell/internal/worker"
)

// Blackboard is cloneable: a clone shares the same store, queue, and
// worker as its origin — cloning is a cheap struct copy of two
// pointers, never a duplication of state.
type Blackboard struct {
	store *store.Store
	queue *queue.TaskQueue
}

// New creates a Blackboard with a fresh store (saturating at the
// default MaxCount) and queue, and starts its worker goroutine. The
// worker runs until ctx is cancelled.
func New(ctx context.Context) *Blackboard {
	return NewWithMaxCount(ctx, store.MaxCount)
}

// NewWithMaxCount is like New but saturates the store at maxCount
// instead of the default, honoring internal/config's BACHT_MAX_COUNT.
func NewWithMaxCount(ctx context.Context, maxCount uint32) *Blackboard {
	s := store.NewWithMax(maxCount)
	q := queue.New()
	w := worker.New(s, q)
	go w.Run(ctx)
	return &Blackboard{store: s, queue: q}
}

// Clone returns a Blackboard sharing this one's store, queue, and
// worker.
func (b *Blackboard) Clone() *Blackboard {
	return &Blackboard{store: b.store, queue: b.queue}
}

// Store exposes the underlying store for read-only observers such as
// internal/display. It must never be mutated directly — all writes
// go through the worker via Tell/Get.
func (b *Blackboard) Store() *store.Store { return b.store }

// Tell asks the worker to increment tok's count. Always succeeds
// unless the worker has stopped.
func (b *Blackboard) Tell(tok ast.Token) (bool, error) {
	return b.send(ast.Tell, tok)
}

// Ask asks the worker whether tok's count is >= 1.
func (b *Blackboard) Ask(tok ast.Token) (bool, error) {
	return b.send(ast.Ask, tok)
}

// Get asks the worker to decrement tok's count if it is >= 1.
func (b *Blackboard) Get(tok ast.Token) (bool, error) {
	return b.send(ast.Get, tok)
}

// Nask asks the worker whether tok's count is 0 (including absent).
func (b *Blackboard) Nask(tok ast.Token) (bool, error) {
	return b.send(ast.Nask, tok)
}

func (b *Blackboard) send(kind ast.Kind, tok ast.Token) (bool, error) {
	rx := b.queue.Enqueue(queue.Event{Kind: kind, Token: tok})
	res, ok := <-rx
	if !ok {
		return false, &queue.TaskError{Kind: queue.ErrChannelError}
	}
	if res.Err != nil {
		return false, res.Err
	}
	return res.OK, nil
}
