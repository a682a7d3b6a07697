// Package worker implements the BachT worker: the single consumer
// that drains the task queue, applies each request to the store
// through the event handler, and sends the result back through the
// task's one-shot reply channel.
//
// There is exactly one Worker per blackboard; no other component
// mutates the store. That single-writer discipline is what keeps the
// store's internal lock uncontended in the steady state.
package worker

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/haricheung/agentic-shell/internal/ast"
	"github.com/haricheung/agentic-shell/internal/queue"
	"github.com/haricheung/agentic-shell/internal/store"
)

// Worker drains a TaskQueue against a Store until its context is
// cancelled.
type Worker struct {
	store   *store.Store
	queue   *queue.TaskQueue
	stopped atomic.Bool
}

// New creates a Worker bound to store s and queue q. Run must be
// called (typically in its own goroutine) to start processing.
func New(s *store.Store, q *queue.TaskQueue) *Worker {
	return &Worker{store: s, queue: q}
}

// Run processes tasks until ctx is cancelled. Setting the stop signal
// (via ctx) does not cancel an in-flight task — it completes normally
// and receives its reply. Tasks still queued at that point are
// abandoned: their reply endpoints are dropped, which the blackboard
// façade surfaces to callers as queue.TaskError{Kind: ErrChannelError}.
func (w *Worker) Run(ctx context.Context) {
	stopCh := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.stopped.Store(true)
			w.queue.CancelWait()
		case <-stopCh:
		}
	}()
	defer close(stopCh)

	for {
		for !w.stopped.Load() {
			task, ok := w.queue.Dequeue()
			if !ok {
				break
			}
			w.process(task)
		}

		if w.stopped.Load() {
			w.queue.CancelWait()
			w.queue.MarkStopped()
			w.abandonQueued()
			return
		}

		w.queue.AwaitNonempty()
	}
}

func (w *Worker) process(task *queue.Task) {
	result := handleEvent(w.store, task.Event)
	task.Reply(queue.Result{OK: result})
}

// abandonQueued drains every task still in the queue once the worker
// has noticed the stop signal, and drops their reply endpoints. The store mutation they would have caused never
// happens, matching spec: an abandoned task is never applied.
func (w *Worker) abandonQueued() {
	for {
		task, ok := w.queue.Dequeue()
		if !ok {
			return
		}
		log.Printf("[WORKER] abandoning queued task on stop: %s(%s)", task.Event.Kind, task.Event.Token)
		task.Abandon()
	}
}

// handleEvent is the EventHandler: a pure dispatcher from an event's
// action to the corresponding store method.
func handleEvent(s *store.Store, ev queue.Event) bool {
	switch ev.Kind {
	case ast.Tell:
		return s.Tell(ev.Token)
	case ast.Ask:
		return s.Ask(ev.Token)
	case ast.Get:
		return s.Get(ev.Token)
	case ast.Nask:
		return s.Nask(ev.Token)
	default:
		panic("worker: unknown event kind " + string(ev.Kind))
	}
}
