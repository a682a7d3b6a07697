// Package socketfacade implements the optional TCP façade: a client
// of the Blackboard/Simulator pair, not of the Store directly. Each
// accepted connection is read as UTF-8 lines; each line is parsed and
// executed exactly as the REPL executes a line, and the outcome is
// written back to the same connection.
package socketfacade

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/haricheung/agentic-shell/internal/blackboard"
	"github.com/haricheung/agentic-shell/internal/parser"
	"github.com/haricheung/agentic-shell/internal/simulator"
)

// DefaultPort is used when no explicit port is supplied, per spec §6.
const DefaultPort = 2138

// Facade binds 127.0.0.1:<port> and executes each received line
// against a shared Blackboard, one Simulator per connection.
type Facade struct {
	port  int
	bb    *blackboard.Blackboard
	ready chan net.Addr
	once  sync.Once
}

// New creates a Facade serving bb on port. A negative port selects
// DefaultPort; port 0 asks the OS for an ephemeral port, useful in
// tests — call Addr after Listen has started to learn which one it
// picked.
func New(bb *blackboard.Blackboard, port int) *Facade {
	if port < 0 {
		port = DefaultPort
	}
	return &Facade{port: port, bb: bb, ready: make(chan net.Addr, 1)}
}

// Addr blocks until Listen has bound its socket, then returns the
// bound address.
func (f *Facade) Addr() net.Addr {
	addr := <-f.ready
	f.ready <- addr // put it back so later calls see it too
	return addr
}

// Listen binds the façade's address and accepts connections until ctx
// is cancelled or the listener errors. It blocks; callers typically
// run it in its own goroutine.
func (f *Facade) Listen(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", f.port)
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("socketfacade: bind %s: %w", addr, err)
	}
	log.Printf("[SOCKET] listening on %s", ln.Addr())
	f.once.Do(func() { f.ready <- ln.Addr() })

	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("socketfacade: accept: %w", err)
		}
		connID := uuid.New().String()
		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConnection(ctx, conn, f.bb.Clone(), connID)
		}()
	}
}

func handleConnection(ctx context.Context, conn net.Conn, bb *blackboard.Blackboard, connID string) {
	defer conn.Close()
	log.Printf("[SOCKET %s] connection from %s", connID, conn.RemoteAddr())

	sim := simulator.New(bb)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := evaluate(ctx, sim, line)
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			log.Printf("[SOCKET %s] write failed: %v", connID, err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[SOCKET %s] read failed: %v", connID, err)
	}
	log.Printf("[SOCKET %s] connection closed", connID)
}

// evaluate parses and runs one line, returning the exact text the
// REPL would print for the same input.
func evaluate(ctx context.Context, sim *simulator.Simulator, line string) string {
	expr, err := parser.Parse(line)
	if err != nil {
		return err.Error()
	}
	ok, err := sim.Run(ctx, expr)
	if err != nil {
		return err.Error()
	}
	if ok {
		return "Success!"
	}
	return "Simulator cannot execute the given agent"
}

var _ simulator.Primitives = (*blackboard.Blackboard)(nil)
