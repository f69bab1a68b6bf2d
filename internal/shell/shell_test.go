// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/google/go-cmp/cmp"
)

// scriptReader replays lines, then an optional final error, then io.EOF.
type scriptReader struct {
	lines   []string
	errs    map[int]error
	prompts []string
	n       int
}

func (s *scriptReader) SetPrompt(p string) { s.prompts = append(s.prompts, p) }

func (s *scriptReader) Readline() (string, error) {
	defer func() { s.n++ }()
	if err, ok := s.errs[s.n]; ok {
		return "", err
	}
	if s.n >= len(s.lines) {
		return "", io.EOF
	}
	return s.lines[s.n], nil
}

func newTestShell(t *testing.T) (*Shell, *[][]string, *bytes.Buffer) {
	t.Helper()
	var calls [][]string
	r := NewRegistry()
	_ = r.Register(&Command{
		Name:     "echo",
		Category: CategoryShell,
		Handler: func(_ context.Context, args []string) error {
			calls = append(calls, args)
			return nil
		},
	})
	_ = r.Register(&Command{
		Name:    "fail",
		Handler: func(context.Context, []string) error { return errors.New("boom") },
	})
	var out bytes.Buffer
	s, err := New(r, &out)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, &calls, &out
}

func TestShell_Run(t *testing.T) {
	s, calls, out := newTestShell(t)
	n := 0
	s.Prompt = func() string { n++; return "p> " }

	in := &scriptReader{
		lines: []string{"echo a", "", "fail", "nosuch", `echo "b c"`, "", "exit", "echo never"},
		errs:  map[int]error{5: readline.ErrInterrupt},
	}
	if err := s.Run(context.Background(), in); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([][]string{{"a"}, {"b c"}}, *calls); diff != "" {
		t.Errorf("handler calls mismatch (-want +got):\n%s", diff)
	}
	got := out.String()
	for _, want := range []string{"Error: boom", "Error: unknown command: nosuch", "Use 'exit' or 'quit' to leave"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if n != 7 || in.prompts[0] != "p> " {
		t.Errorf("prompt evaluated %d times, prompts %v", n, in.prompts)
	}
}

func TestShell_RunStopsOnEOFAndReadError(t *testing.T) {
	s, _, _ := newTestShell(t)
	if err := s.Run(context.Background(), &scriptReader{}); err != nil {
		t.Errorf("Run() on EOF error = %v", err)
	}

	readErr := errors.New("tty gone")
	err := s.Run(context.Background(), &scriptReader{errs: map[int]error{0: readErr}})
	if !errors.Is(err, readErr) {
		t.Errorf("Run() error = %v, want %v", err, readErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := &scriptReader{lines: []string{"echo x"}}
	if err := s.Run(ctx, in); err != nil || in.n != 0 {
		t.Errorf("Run() with cancelled context read %d lines, error %v", in.n, err)
	}
}

func TestShell_Help(t *testing.T) {
	s, _, out := newTestShell(t)
	s.Footer = func() string { return "Profile: main" }
	ctx := context.Background()

	if err := s.Execute(ctx, "help"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Profile: main") || !strings.Contains(out.String(), "help [command]") {
		t.Errorf("help output:\n%s", out)
	}

	out.Reset()
	if err := s.Execute(ctx, "? quit"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Command: exit") {
		t.Errorf("help exit output:\n%s", out)
	}

	if err := s.Execute(ctx, "help nosuch"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("help nosuch error = %v", err)
	}
	if err := s.Execute(ctx, `echo "open`); !errors.Is(err, ErrUnterminatedQuote) {
		t.Errorf("unterminated error = %v", err)
	}
}

func TestNew_BuiltinConflict(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Command{Name: "quit", Handler: nop})
	if _, err := New(r, io.Discard); err == nil {
		t.Error("New() accepted a registry that already has quit")
	}
}

func TestBasicReader(t *testing.T) {
	var out bytes.Buffer
	r := NewBasicReader(strings.NewReader("one\ntwo\n"), &out)
	r.SetPrompt("> ")

	for _, want := range []string{"one", "two"} {
		got, err := r.Readline()
		if err != nil || got != want {
			t.Fatalf("Readline() = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := r.Readline(); !errors.Is(err, io.EOF) {
		t.Errorf("Readline() at end = %v, want io.EOF", err)
	}
	if out.String() != "> > > " {
		t.Errorf("prompts = %q", out.String())
	}
}
