// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"context"

	"github.com/aplane-algo/clive/internal/authority"
	"github.com/aplane-algo/clive/internal/command"
	"github.com/aplane-algo/clive/internal/wax"
)

// UpdateAuthority fetches the authority of account, applies edit and submits
// an account_update2 with the changed roles only.
func (e *Engine) UpdateAuthority(ctx context.Context, account string, edit func(*authority.Authority) error, opts TxOptions) (*command.PerformResult, error) {
	auth, err := e.Authority(ctx, account)
	if err != nil {
		return nil, err
	}
	if err := edit(auth); err != nil {
		return nil, err
	}
	op, err := auth.BuildUpdate()
	if err != nil {
		return nil, err
	}
	return e.Perform(ctx, []wax.Operation{op}, opts)
}
