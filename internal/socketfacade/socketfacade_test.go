package socketfacade

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/haricheung/agentic-shell/internal/blackboard"
)

func startFacade(t *testing.T) (*Facade, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	bb := blackboard.New(ctx)
	f := New(bb, 0)

	errCh := make(chan error, 1)
	go func() { errCh <- f.Listen(ctx) }()

	addr := f.Addr()
	_ = addr

	return f, func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("facade did not shut down after cancel")
		}
	}
}

func dialAndExchange(t *testing.T, addr net.Addr, lines ...string) []string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	var replies []string
	for _, line := range lines {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		reply, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		replies = append(replies, reply[:len(reply)-1])
	}
	return replies
}

func TestFacade_ExecutesSuccessfulAgent(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()

	replies := dialAndExchange(t, f.Addr(), "tell(a);ask(a)")
	if replies[0] != "Success!" {
		t.Errorf("got %q, want Success!", replies[0])
	}
}

func TestFacade_ReportsDeadlock(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()

	replies := dialAndExchange(t, f.Addr(), "ask(never_told)")
	if replies[0] != "Simulator cannot execute the given agent" {
		t.Errorf("got %q, want the deadlock message", replies[0])
	}
}

func TestFacade_ParseErrorIsNotBlankAndNotSuccess(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()

	replies := dialAndExchange(t, f.Addr(), "Wrong(x)")
	if replies[0] == "Success!" || replies[0] == "" {
		t.Errorf("got %q, want a parse error message", replies[0])
	}
}

func TestFacade_SharesStoreAcrossConnections(t *testing.T) {
	f, stop := startFacade(t)
	defer stop()

	dialAndExchange(t, f.Addr(), "tell(shared)")
	replies := dialAndExchange(t, f.Addr(), "ask(shared)")
	if replies[0] != "Success!" {
		t.Errorf("second connection should observe the first's tell, got %q", replies[0])
	}
}
