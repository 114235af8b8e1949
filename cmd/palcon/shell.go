package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/palworldkit/palcon/pkg/palworld"
	"github.com/palworldkit/palcon/pkg/rcon"
)

// runShell drives an interactive prompt over the already-authenticated
// session. Every line goes to the server verbatim; the reply is printed as
// the server sent it.
func runShell(ctx context.Context, client *palworld.Client, peer net.Addr) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "palcon> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("Connected to %s. Type a server command, or 'quit' to leave.\n", peer)
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		command := strings.TrimSpace(line)
		switch {
		case command == "":
			continue
		case strings.EqualFold(command, "q"),
			strings.EqualFold(command, "quit"),
			strings.EqualFold(command, "exit"):
			return nil
		}

		reply, err := client.Run(ctx, command)
		if err != nil {
			// A dead session cannot carry further commands; anything
			// else is worth showing and carrying on.
			if errors.Is(err, rcon.ErrConnectionClosed) || errors.Is(err, rcon.ErrTimeout) {
				return err
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if reply != "" {
			fmt.Println(reply)
		}
	}
}

// historyPath picks a per-user location for shell history. Empty disables
// history rather than failing the shell.
func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "palcon")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
