package queue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/haricheung/agentic-shell/internal/ast"
)

func tellEvent(tok string) Event {
	return Event{Kind: ast.Tell, Token: ast.Token(tok)}
}

// ── FIFO ──────────────────────────────────────────────────────────────────

func TestQueue_DequeueRespectsFIFOOrder(t *testing.T) {
	q := New()
	q.Enqueue(tellEvent("a"))
	q.Enqueue(tellEvent("b"))
	q.Enqueue(tellEvent("c"))

	var order []string
	for {
		task, ok := q.Dequeue()
		if !ok {
			break
		}
		order = append(order, string(task.Event.Token))
	}
	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestQueue_DequeueOnEmptyReturnsFalse(t *testing.T) {
	q := New()
	if _, ok := q.Dequeue(); ok {
		t.Error("expected Dequeue on empty queue to return false")
	}
}

// ── reply channel correctness ────────────────────────────────────────────

func TestQueue_ReplySendsResultBackToCaller(t *testing.T) {
	q := New()
	rx := q.Enqueue(tellEvent("a"))

	task, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected a task to dequeue")
	}
	task.Reply(Result{OK: true})

	select {
	case res := <-rx:
		if !res.OK || res.Err != nil {
			t.Errorf("got %+v, want OK=true, Err=nil", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestQueue_AbandonedTaskResolvesToClosedChannel(t *testing.T) {
	q := New()
	rx := q.Enqueue(tellEvent("a"))

	task, ok := q.Dequeue()
	if !ok {
		t.Fatal("expected a task to dequeue")
	}
	task.Abandon()

	select {
	case res, ok := <-rx:
		if ok {
			t.Errorf("expected closed channel, got result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for abandon")
	}
}

// ── notification policy ──────────────────────────────────────────────────

func TestQueue_NotifyWakesOneWaiterPerEnqueue(t *testing.T) {
	q := New()
	var woke int32
	done := make(chan struct{}, 3)

	spawnWaiter := func() {
		go func() {
			q.AwaitNonempty()
			atomic.AddInt32(&woke, 1)
			done <- struct{}{}
		}()
	}
	spawnWaiter()
	spawnWaiter()
	spawnWaiter()
	time.Sleep(100 * time.Millisecond) // let waiters block

	q.Enqueue(tellEvent("a"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no waiter woke within timeout")
	}
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&woke); got != 1 {
		t.Errorf("got %d waiters woken, want exactly 1", got)
	}

	// Drain the remaining two with two more enqueues.
	q.Enqueue(tellEvent("b"))
	q.Enqueue(tellEvent("c"))
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("remaining waiters never woke")
		}
	}
}

func TestQueue_ThreeEnqueuesWakeThreeWaiters(t *testing.T) {
	q := New()
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			q.AwaitNonempty()
			done <- struct{}{}
		}()
	}
	time.Sleep(100 * time.Millisecond)

	q.Enqueue(tellEvent("a"))
	q.Enqueue(tellEvent("b"))
	q.Enqueue(tellEvent("c"))

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("only %d of 3 waiters woke", i)
		}
	}
}

func TestQueue_AwaitNonemptyReturnsImmediatelyIfTaskAlreadyQueued(t *testing.T) {
	// Mirrors the worker's actual Dequeue-then-AwaitNonempty boundary:
	// a task can land after Dequeue reports empty but before
	// AwaitNonempty is called. AwaitNonempty must not block in that
	// case — it has to see the already-queued task itself rather than
	// relying on a Signal that arrived before anyone was waiting.
	q := New()
	q.Enqueue(tellEvent("a"))

	done := make(chan struct{})
	go func() {
		q.AwaitNonempty()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AwaitNonempty blocked despite a task already queued")
	}
}

func TestQueue_CancelWaitWakesWithoutEnqueue(t *testing.T) {
	q := New()
	done := make(chan struct{})
	go func() {
		q.AwaitNonempty()
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	q.CancelWait()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CancelWait did not wake the waiter")
	}
}
