package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/haricheung/agentic-shell/internal/blackboard"
	"github.com/haricheung/agentic-shell/internal/config"
	"github.com/haricheung/agentic-shell/internal/display"
	"github.com/haricheung/agentic-shell/internal/parser"
	"github.com/haricheung/agentic-shell/internal/simulator"
	"github.com/haricheung/agentic-shell/internal/socketfacade"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "error: create cache dir: %v\n", err)
		os.Exit(1)
	}

	// Redirect debug logs to file so they don't interfere with the REPL.
	if f, err := os.OpenFile(filepath.Join(cfg.CacheDir, "debug.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	bb := blackboard.NewWithMaxCount(ctx, cfg.MaxCount)

	if os.Getenv("BACHT_SOCKET") != "" {
		facade := socketfacade.New(bb, cfg.SocketPort)
		go func() {
			if err := facade.Listen(ctx); err != nil {
				log.Printf("[SOCKET] listener stopped: %v", err)
			}
		}()
	}

	if len(os.Args) > 1 && os.Args[1] != "" {
		input := strings.Join(os.Args[1:], " ")
		if err := runOne(ctx, bb, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		cancel()
		return
	}

	code := runREPL(ctx, bb, cfg.CacheDir)
	cancel()
	os.Exit(code)
}

func runOne(ctx context.Context, bb *blackboard.Blackboard, input string) error {
	expr, err := parser.Parse(input)
	if err != nil {
		fmt.Println(err.Error())
		return nil
	}
	sim := simulator.New(bb)
	ok, err := sim.Run(ctx, expr)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("Success!")
	} else {
		fmt.Println("Simulator cannot execute the given agent")
	}
	return nil
}

func runREPL(ctx context.Context, bb *blackboard.Blackboard, cacheDir string) int {
	fmt.Println("\033[1m\033[36mBachT\033[0m — agent interpreter  \033[2m(exit/Ctrl-D to quit)\033[0m")
	fmt.Println("\033[2mtry: (tell(bach);get(rust))||(get(bach);tell(rust))\033[0m")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36m>\033[0m ",
		HistoryFile:       filepath.Join(cacheDir, "history"),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init error: %v\n", err)
		return 1
	}
	defer rl.Close()

	sim := simulator.New(bb)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			// Ctrl+D — exit cleanly.
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return 1
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return 0
		}
		if input == ":store" {
			fmt.Print(display.RenderSnapshot(bb.Store().Snapshot()))
			continue
		}

		expr, err := parser.Parse(input)
		if err != nil {
			fmt.Println(err.Error())
			continue
		}

		ok, err := sim.Run(ctx, expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if ctx.Err() != nil {
				return 1
			}
			continue
		}
		if ok {
			fmt.Println("Success!")
		} else {
			fmt.Println("Simulator cannot execute the given agent")
		}
	}
}
