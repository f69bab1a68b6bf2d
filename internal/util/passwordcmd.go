// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aplane-algo/clive/internal/crypto"
)

const (
	// passwordCommandTimeout bounds how long the helper may run.
	passwordCommandTimeout = 5 * time.Second

	// maxPasswordOutputBytes bounds helper stdout (8 KB).
	maxPasswordOutputBytes = 8 * 1024
)

// ErrPasswordCommand wraps every failure of the password helper.
var ErrPasswordCommand = errors.New("password_command")

// RunPasswordCommand executes the configured helper and returns the wallet password.
//
// Output handling:
//   - exactly one trailing newline (or CRLF) is stripped
//   - empty output and NUL bytes are rejected
//   - "base64:" and "hex:" prefixes are decoded
//
// The caller should zero the returned slice after use.
func RunPasswordCommand(ctx context.Context, cfg *PasswordCommandConfig) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: not configured", ErrPasswordCommand)
	}
	binary, err := validateHelperArgv(cfg.Argv)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, passwordCommandTimeout)
	defer cancel()

	// A process group lets a timeout kill the helper's children too.
	cmd := exec.Command(binary, cfg.Argv[1:]...) //nolint:gosec // validated above
	cmd.Env = helperEnv(cfg.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = io.Discard

	var stdout bytes.Buffer
	defer zeroBuffer(&stdout)
	lw := &limitedWriter{w: &stdout, remaining: maxPasswordOutputBytes}
	cmd.Stdout = lw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start: %w", ErrPasswordCommand, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: command failed: %w", ErrPasswordCommand, err)
		}
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("%w: %w", ErrPasswordCommand, ctx.Err())
	}

	if lw.truncated {
		return nil, fmt.Errorf("%w: stdout exceeded %d bytes", ErrPasswordCommand, maxPasswordOutputBytes)
	}

	out := stdout.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
		if n := len(out); n > 0 && out[n-1] == '\r' {
			out = out[:n-1]
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrPasswordCommand)
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return nil, fmt.Errorf("%w: output contains NUL bytes", ErrPasswordCommand)
	}
	return decodeHelperOutput(out)
}

func decodeHelperOutput(out []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(out, []byte("base64:")):
		enc := out[len("base64:"):]
		dec := make([]byte, base64.StdEncoding.DecodedLen(len(enc)))
		n, err := base64.StdEncoding.Decode(dec, enc)
		if err != nil {
			crypto.ZeroBytes(dec)
			return nil, fmt.Errorf("%w: invalid base64 output: %w", ErrPasswordCommand, err)
		}
		return dec[:n], nil
	case bytes.HasPrefix(out, []byte("hex:")):
		enc := out[len("hex:"):]
		dec := make([]byte, hex.DecodedLen(len(enc)))
		n, err := hex.Decode(dec, enc)
		if err != nil {
			crypto.ZeroBytes(dec)
			return nil, fmt.Errorf("%w: invalid hex output: %w", ErrPasswordCommand, err)
		}
		return dec[:n], nil
	}
	return bytes.Clone(out), nil
}

func zeroBuffer(buf *bytes.Buffer) {
	crypto.ZeroBytes(buf.Bytes())
	buf.Reset()
}

// validateHelperArgv requires an absolute, executable, not group/world-writable argv[0].
func validateHelperArgv(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("%w: argv must be non-empty", ErrPasswordCommand)
	}
	path := argv[0]
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: argv[0] must be an absolute path, got %q", ErrPasswordCommand, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPasswordCommand, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrPasswordCommand, path)
	}
	perm := info.Mode().Perm()
	if perm&0111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable (mode %04o)", ErrPasswordCommand, path, perm)
	}
	if perm&0022 != 0 {
		return "", fmt.Errorf("%w: %s is group or world writable (mode %04o)", ErrPasswordCommand, path, perm)
	}
	return path, nil
}

// helperEnv builds the helper environment from declared variables only.
func helperEnv(declared map[string]string) []string {
	env := make([]string, 0, len(declared))
	for k, v := range declared {
		env = append(env, k+"="+v)
	}
	return env
}

// limitedWriter stops storing after a byte limit and records truncation.
type limitedWriter struct {
	w         io.Writer
	remaining int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if int64(n) > lw.remaining {
		p = p[:lw.remaining]
		lw.truncated = true
	}
	if len(p) > 0 {
		written, err := lw.w.Write(p)
		lw.remaining -= int64(written)
		if err != nil {
			return written, err
		}
	}
	// Report the full length so the helper never sees a short write.
	return n, nil
}
