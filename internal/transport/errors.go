// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package transport

import "errors"

// Sentinel errors for RPC transport failures.
var (
	// ErrUnreachable is returned when the endpoint cannot be contacted.
	ErrUnreachable = errors.New("endpoint unreachable")

	// ErrHTTPStatus is returned for non-200 HTTP responses.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrIDMismatch is returned when a response id does not match the request.
	ErrIDMismatch = errors.New("response id does not match request")

	// ErrInvalidAddress is returned for unsupported address schemes.
	ErrInvalidAddress = errors.New("invalid endpoint address")
)
