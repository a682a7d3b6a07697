// Package queue implements the BachT task queue: a FIFO of pending
// store requests, each carrying a one-shot reply channel, with
// condition-variable-style notification for the single consumer
// (internal/worker) that drains it.
package queue

import (
	"fmt"
	"sync"

	"github.com/haricheung/agentic-shell/internal/ast"
)

// ErrorKind classifies a TaskError.
type ErrorKind int

const (
	ErrUnspecified ErrorKind = iota
	ErrChannelError
)

func (k ErrorKind) String() string {
	if k == ErrChannelError {
		return "ChannelError"
	}
	return "Unspecified"
}

// TaskError is surfaced when a task's reply channel is dropped before
// a result arrives, or when the worker has stopped.
type TaskError struct {
	Kind ErrorKind
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task error: %s", e.Kind)
}

// Event is a single request unit: one action applied to one token.
type Event struct {
	Kind  ast.Kind
	Token ast.Token
}

// Result is what a Task's reply channel carries: the primitive's
// boolean outcome, or an error that short-circuits the caller.
type Result struct {
	OK  bool
	Err error
}

// Task pairs an Event with the one-shot reply sink the worker uses to
// send its result back.
type Task struct {
	Event Event
	reply chan Result
}

// Reply sends res through the task's reply channel. It never blocks:
// the channel is buffered for exactly one value, and a task is
// replied to at most once.
func (t *Task) Reply(res Result) {
	t.reply <- res
}

// Abandon drops the task's reply endpoint without sending a result.
// The caller blocked on the receive side observes a closed channel,
// which the blackboard façade (internal/blackboard) turns into
// TaskError{Kind: ErrChannelError}.
func (t *Task) Abandon() {
	close(t.reply)
}

// TaskQueue is a multi-producer, single-consumer FIFO of tasks, plus
// a condition-variable-style notifier: Enqueue wakes at most one
// waiter, and N enqueues wake N distinct waiters when N are blocked
// in AwaitNonempty.
type TaskQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []*Task
	stopped bool
}

// New creates an empty TaskQueue.
func New() *TaskQueue {
	q := &TaskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue places ev at the tail of the queue in FIFO arrival order,
// wakes at most one waiter, and returns the reply channel the caller
// should receive the eventual result from. Once MarkStopped has been
// called, Enqueue no longer queues anything: it returns an
// already-closed channel, so a stopped worker's queue surfaces
// TaskError{ErrChannelError} to every future caller, not just the
// ones already queued at stop time.
func (q *TaskQueue) Enqueue(ev Event) <-chan Result {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		ch := make(chan Result)
		close(ch)
		return ch
	}
	t := &Task{Event: ev, reply: make(chan Result, 1)}
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	q.cond.Signal()
	return t.reply
}

// MarkStopped prevents any further task from being queued. Existing
// queued tasks are unaffected; the worker is expected to drain and
// Abandon them itself.
func (q *TaskQueue) MarkStopped() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
}

// Dequeue removes and returns the oldest task, or (nil, false) if the
// queue is empty. Non-blocking.
func (q *TaskQueue) Dequeue() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// AwaitNonempty cooperatively suspends the caller until the queue is
// non-empty or a wake has been posted via CancelWait. It checks
// len(tasks) under q.mu before waiting, so an Enqueue that lands
// between the caller's Dequeue and this call is never missed: the
// check and the wait happen under the same lock Enqueue signals
// under, closing the window a bare Wait() would leave open.
func (q *TaskQueue) AwaitNonempty() {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// CancelWait posts a wake without enqueueing a task. Used by the
// worker's shutdown path to unblock a waiter that would otherwise
// never see a new task.
func (q *TaskQueue) CancelWait() {
	q.cond.Signal()
}

// Len reports the current queue length, for tests and diagnostics.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
