// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

var (
	// ErrExit ends the read-eval loop when returned by a handler.
	ErrExit = errors.New("exit")

	// ErrUnknownCommand is returned for a name nothing is registered under.
	ErrUnknownCommand = errors.New("unknown command")
)

// LineReader is the input side of the shell. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Shell reads lines, dispatches them to registered commands and prints
// handler errors without stopping.
type Shell struct {
	Registry *Registry
	Out      io.Writer

	// Prompt is evaluated before every line. Nil uses "clive> ".
	Prompt func() string

	// Footer is appended to the command listing of "help".
	Footer func() string
}

// New returns a shell over registry writing to out, with "help" and "exit"
// registered.
func New(registry *Registry, out io.Writer) (*Shell, error) {
	s := &Shell{Registry: registry, Out: out}
	builtins := []*Command{
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Usage:       "help [command]",
			Description: "Show available commands or help for one command",
			Category:    CategoryShell,
			Handler:     s.help,
			Complete:    func([]string) []string { return registry.Names() },
		},
		{
			Name:        "exit",
			Aliases:     []string{"quit", "q"},
			Usage:       "exit",
			Description: "Leave the shell",
			Category:    CategoryShell,
			Handler:     func(context.Context, []string) error { return ErrExit },
		},
	}
	for _, cmd := range builtins {
		if err := registry.Register(cmd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Shell) help(_ context.Context, args []string) error {
	if len(args) == 0 {
		footer := ""
		if s.Footer != nil {
			footer = s.Footer()
		}
		ShowHelp(s.Out, s.Registry, footer)
		return nil
	}
	cmd, ok := s.Registry.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	ShowCommandHelp(s.Out, cmd)
	return nil
}

// Execute runs one line. Blank lines are a no-op.
func (s *Shell) Execute(ctx context.Context, line string) error {
	name, args, err := ParseCommand(line)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	cmd, ok := s.Registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s (type 'help' for a list)", ErrUnknownCommand, name)
	}
	return cmd.Handler(ctx, args)
}

// Run reads and executes lines until end of input, an exit command or
// cancellation of ctx.
func (s *Shell) Run(ctx context.Context, r LineReader) error {
	for ctx.Err() == nil {
		r.SetPrompt(s.prompt())
		line, err := r.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					_, _ = fmt.Fprintln(s.Out, "Use 'exit' or 'quit' to leave")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			_, _ = fmt.Fprintf(s.Out, "Error: %v\n", err)
		}
	}
	return nil
}

func (s *Shell) prompt() string {
	if s.Prompt == nil {
		return "clive> "
	}
	return s.Prompt()
}

// BasicReader is a LineReader without history or completion, for input
// that is not a terminal.
type BasicReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

// NewBasicReader reads lines from in and writes prompts to out. A nil out
// suppresses prompts.
func NewBasicReader(in io.Reader, out io.Writer) *BasicReader {
	return &BasicReader{scanner: bufio.NewScanner(in), out: out}
}

func (b *BasicReader) SetPrompt(prompt string) { b.prompt = prompt }

func (b *BasicReader) Readline() (string, error) {
	if b.out != nil {
		_, _ = fmt.Fprint(b.out, b.prompt)
	}
	if !b.scanner.Scan() {
		if err := b.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return b.scanner.Text(), nil
}
