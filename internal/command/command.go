// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package command holds the units of work clive runs against a node and a
// wallet: data retrievals staged as harvest, sanitize and process, and the
// transaction commands (build, sign, save, broadcast) composed by
// PerformActionsOnTransaction.
package command

import (
	"context"
	"errors"
	"fmt"
)

// ErrResultNotAvailable is returned by Result before a command produced one.
var ErrResultNotAvailable = errors.New("command result not available")

// Command is a unit of work.
type Command interface {
	Execute(ctx context.Context) error
}

// WithResult stores the value a command produces. Embed it in a command.
type WithResult[T any] struct {
	result T
	set    bool
}

// Result returns the stored result or ErrResultNotAvailable.
func (w *WithResult[T]) Result() (T, error) {
	if !w.set {
		var zero T
		return zero, ErrResultNotAvailable
	}
	return w.result, nil
}

// ResultOrNil returns the stored result or the zero value.
func (w *WithResult[T]) ResultOrNil() T {
	return w.result
}

// HasResult reports whether a result was stored.
func (w *WithResult[T]) HasResult() bool {
	return w.set
}

func (w *WithResult[T]) setResult(v T) {
	w.result = v
	w.set = true
}

// Stage names a retrieval stage.
type Stage string

const (
	StageHarvest  Stage = "harvest"
	StageSanitize Stage = "sanitize"
	StageProcess  Stage = "process"
)

// StageError reports which retrieval stage failed.
type StageError struct {
	Command string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Command, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Retrieval runs Harvest, then Sanitize, then Process and stores what
// Process returns. Harvest talks to the outside world; Sanitize and Process
// are pure. A nil Sanitize requires H and S to be the same type.
type Retrieval[H, S, R any] struct {
	WithResult[R]

	Name     string
	Harvest  func(ctx context.Context) (H, error)
	Sanitize func(data H) (S, error)
	Process  func(data S) (R, error)
}

// Execute runs the stages in order, aborting on the first error.
func (r *Retrieval[H, S, R]) Execute(ctx context.Context) error {
	fail := func(stage Stage, err error) error {
		return &StageError{Command: r.Name, Stage: stage, Err: err}
	}

	harvested, err := r.Harvest(ctx)
	if err != nil {
		return fail(StageHarvest, err)
	}

	var sanitized S
	if r.Sanitize != nil {
		sanitized, err = r.Sanitize(harvested)
		if err != nil {
			return fail(StageSanitize, err)
		}
	} else {
		var ok bool
		if sanitized, ok = any(harvested).(S); !ok {
			return fail(StageSanitize, fmt.Errorf("no sanitizer for %T", harvested))
		}
	}

	result, err := r.Process(sanitized)
	if err != nil {
		return fail(StageProcess, err)
	}
	r.setResult(result)
	return nil
}

// Run executes c and returns its result.
func Run[T any](ctx context.Context, c interface {
	Command
	Result() (T, error)
}) (T, error) {
	if err := c.Execute(ctx); err != nil {
		var zero T
		return zero, err
	}
	return c.Result()
}

func identity[T any](v T) (T, error) { return v, nil }
