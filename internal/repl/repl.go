// Package repl runs the line-at-a-time User/AI loop on a terminal.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultExitKeywords end the loop when typed on their own.
var DefaultExitKeywords = []string{"exit", "quit"}

// Handler answers one line of user input.
type Handler func(ctx context.Context, line string) (string, error)

type readResult struct {
	raw string
	err error
}

// readLines feeds lines from in until a read fails or done is closed. A read
// already blocked on in stays blocked until in yields or is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan readResult {
	ch := make(chan readResult)
	go func() {
		r := bufio.NewReader(in)
		for {
			raw, err := r.ReadString('\n')
			select {
			case ch <- readResult{raw, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// Run prompts with "User: ", passes each non-blank trimmed line to handler and
// prints its reply as "AI: <reply>". It returns nil on EOF or when an exit
// keyword (case-insensitive) is entered, ctx.Err() as soon as ctx is done, and
// the handler's error otherwise.
func Run(ctx context.Context, in io.Reader, out io.Writer, handler Handler, exitKeywords ...string) error {
	if len(exitKeywords) == 0 {
		exitKeywords = DefaultExitKeywords
	}
	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(out, "User: "); err != nil {
			return err
		}
		var res readResult
		select {
		case <-ctx.Done():
			_, _ = io.WriteString(out, "\n")
			return ctx.Err()
		case res = <-lines:
		}
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return res.err
		}
		if res.err != nil && res.raw == "" {
			// leave the terminal on a fresh line
			_, _ = io.WriteString(out, "\n")
			return nil
		}

		line := strings.TrimSpace(res.raw)
		switch {
		case line == "":
		case isExit(line, exitKeywords):
			return nil
		default:
			reply, err := handler(ctx, line)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(out, "AI: %s\n", reply); err != nil {
				return err
			}
		}
		if res.err != nil {
			return nil
		}
	}
}

func isExit(line string, keywords []string) bool {
	for _, k := range keywords {
		if strings.EqualFold(line, k) {
			return true
		}
	}
	return false
}
