// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

// Liquid and savings transfer methods

import (
	"context"
	"fmt"

	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/wax"
)

// TransferParams describes a HIVE or HBD transfer. An empty From uses the
// working account.
type TransferParams struct {
	From   string
	To     string
	Amount wax.Asset
	Memo   string
}

// RecurrentTransferParams schedules Executions transfers every Recurrence hours.
// A zero amount cancels the recurrent transfer to To.
type RecurrentTransferParams struct {
	TransferParams
	Recurrence uint16
	Executions uint16
}

// SavingsParams describes a savings deposit or withdrawal. An empty To sends
// back to From. A nil RequestID on withdrawal picks the next free id.
type SavingsParams struct {
	From      string
	To        string
	Amount    wax.Asset
	Memo      string
	RequestID *uint32
}

// Minimum recurrent transfer settings enforced by the chain.
const (
	MinRecurrence = 24
	MinExecutions = 2
)

// liquid checks that a is a positive HIVE or HBD amount.
func liquid(a wax.Asset) error {
	if a.Symbol != wax.SymbolHive && a.Symbol != wax.SymbolHBD {
		return fmt.Errorf("%w: %s is not HIVE or HBD", ErrInvalidAmount, a)
	}
	if a.Amount <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, a)
	}
	return nil
}

func (e *Engine) endpoints(from, to string) (string, string, error) {
	from, err := e.account(from)
	if err != nil {
		return "", "", err
	}
	if to == "" {
		return from, from, nil
	}
	return from, to, wax.ValidateAccountName(to)
}

// Transfer sends liquid HIVE or HBD.
func (e *Engine) Transfer(ctx context.Context, params TransferParams, opts TxOptions) (*command.PerformResult, error) {
	from, err := e.account(params.From)
	if err != nil {
		return nil, err
	}
	if err := wax.ValidateAccountName(params.To); err != nil {
		return nil, err
	}
	if err := liquid(params.Amount); err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{&wax.TransferOperation{
		From:   from,
		To:     params.To,
		Amount: params.Amount,
		Memo:   params.Memo,
	}}, opts)
}

// RecurrentTransfer creates, updates or (with a zero amount) removes a
// recurrent transfer.
func (e *Engine) RecurrentTransfer(ctx context.Context, params RecurrentTransferParams, opts TxOptions) (*command.PerformResult, error) {
	from, err := e.account(params.From)
	if err != nil {
		return nil, err
	}
	if err := wax.ValidateAccountName(params.To); err != nil {
		return nil, err
	}
	if params.Amount.Amount != 0 {
		if err := liquid(params.Amount); err != nil {
			return nil, err
		}
		if params.Recurrence < MinRecurrence || params.Executions < MinExecutions {
			return nil, fmt.Errorf("recurrence must be at least %dh and executions at least %d", MinRecurrence, MinExecutions)
		}
	}
	return e.Perform(ctx, []wax.Operation{&wax.RecurrentTransferOperation{
		From:       from,
		To:         params.To,
		Amount:     params.Amount,
		Memo:       params.Memo,
		Recurrence: params.Recurrence,
		Executions: params.Executions,
	}}, opts)
}

// SavingsDeposit moves liquid funds into savings.
func (e *Engine) SavingsDeposit(ctx context.Context, params SavingsParams, opts TxOptions) (*command.PerformResult, error) {
	from, to, err := e.endpoints(params.From, params.To)
	if err != nil {
		return nil, err
	}
	if err := liquid(params.Amount); err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{&wax.TransferToSavingsOperation{
		From:   from,
		To:     to,
		Amount: params.Amount,
		Memo:   params.Memo,
	}}, opts)
}

// SavingsWithdraw starts a three-day withdrawal from savings.
func (e *Engine) SavingsWithdraw(ctx context.Context, params SavingsParams, opts TxOptions) (*command.PerformResult, error) {
	from, to, err := e.endpoints(params.From, params.To)
	if err != nil {
		return nil, err
	}
	if err := liquid(params.Amount); err != nil {
		return nil, err
	}
	var requestID uint32
	if params.RequestID != nil {
		requestID = *params.RequestID
	} else {
		savings, err := e.Savings(ctx, from)
		if err != nil {
			return nil, err
		}
		requestID = savings.NextRequestID
	}
	return e.Perform(ctx, []wax.Operation{&wax.TransferFromSavingsOperation{
		From:      from,
		RequestID: requestID,
		To:        to,
		Amount:    params.Amount,
		Memo:      params.Memo,
	}}, opts)
}

// CancelSavingsWithdrawal cancels the pending withdrawal requestID of from.
func (e *Engine) CancelSavingsWithdrawal(ctx context.Context, from string, requestID uint32, opts TxOptions) (*command.PerformResult, error) {
	from, err := e.account(from)
	if err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{&wax.CancelTransferFromSavingsOperation{
		From:      from,
		RequestID: requestID,
	}}, opts)
}
