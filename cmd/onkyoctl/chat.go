package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// lineReader is the part of *readline.Instance the chat loop uses.
type lineReader interface {
	Readline() (string, error)
	SaveHistory(content string) error
}

// chat runs an interactive raw ISCP session on the terminal.
func (a *app) chat(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialise readline: %w", err)
	}
	defer rl.Close()

	// Unblock Readline when the process is signalled.
	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer stop()

	fmt.Fprintln(a.out, "Chat session with the receiver established.")
	fmt.Fprintln(a.out, "Type ISCP messages (e.g. PWRQSTN, MVL1A) or 'exit' to quit.")
	fmt.Fprintln(a.out, "Use arrow up/down to navigate command history.")

	return a.chatLoop(ctx, rl)
}

// chatLoop sends each line as a raw message until exit, EOF or interrupt.
// Exchange errors are printed and the loop continues.
func (a *app) chatLoop(ctx context.Context, rl lineReader) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Fprintln(a.out, "Terminating chat session...")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Fprintln(a.out, "Terminating chat session...")
			return nil
		}

		//nolint:errcheck // history is best-effort
		rl.SaveHistory(input)

		reply, err := a.session.Exchange(ctx, input)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(a.out, "receiver: %s\n", reply)
	}
}
