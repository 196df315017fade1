package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caffeineduck/hostasync/loop"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newReplCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Call helloAsync interactively",
		Long: `Start an interactive session that calls helloAsync once per line.

Each line is the options object as JSON; an empty line means {}. Prefix a
line with a number to make that many concurrent calls:

  >>> {"louder": true}
  >>> 3 {"buffer": true}

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
		Args: cobra.NoArgs,
		RunE: a.runRepl,
	}

	cmd.Flags().String("history", "", "History file path (default: ~/.hostasync_history)")
	return cmd
}

func (a *app) runRepl(cmd *cobra.Command, _ []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".hostasync_history")
	}

	reg := statsRegistry(cmd)
	l := loop.New(a.loopOptions(reg)...)
	defer l.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            cmd.OutOrStdout(),
		Stderr:            cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "hostasync REPL (type 'exit' to quit, Ctrl+D to exit)")

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(cmd.OutOrStdout())
				break
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			break
		}

		if err := a.evalLine(cmd, l, line); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}

	if reg != nil {
		printStats(cmd.OutOrStdout(), reg)
	}
	return nil
}

// parseReplLine splits a REPL line into an optional call count and the
// options JSON.
func parseReplLine(line string) (int, string, error) {
	count := 1
	head, tail, _ := strings.Cut(line, " ")
	if n, err := strconv.Atoi(head); err == nil {
		count, line = n, strings.TrimSpace(tail)
	}
	if count < 1 {
		return 0, "", fmt.Errorf("call count must be at least 1")
	}
	return count, line, nil
}

func (a *app) evalLine(cmd *cobra.Command, l *loop.Loop, line string) error {
	count, rest, err := parseReplLine(line)
	if err != nil {
		return err
	}

	var args []string
	if rest != "" {
		args = []string{rest}
	}
	opts, err := callOptions(cmd, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	_, err = a.invoke(ctx, l, opts, count, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}
