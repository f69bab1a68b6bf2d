// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Command secretcheck scans the clive sources for careless handling of
// secrets: WIF keys, wallet passwords and backup passphrases.
//
// Three checks run:
//   - log: secret identifiers passed to print or log calls
//   - zero: functions that obtain a secret but never wipe it
//   - rand: math/rand imported by key handling packages
//
// It exits 1 when anything is found.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Key handling packages, relative to the repo root.
var criticalDirs = []string{
	"internal/crypto",
	"internal/wax",
	"internal/keys",
	"internal/beekeeper",
	"internal/authority",
}

// Packages that read passwords or WIF keys from the user.
var secretDirs = []string{
	"cmd/clive",
	"internal/engine",
	"internal/util",
	"internal/beekeeper",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(errOut, "Usage: secretcheck <repo-root>")
		return 2
	}
	root := args[0]

	var (
		findings []finding
		checked  int
	)
	scan := func(dirs []string, check func(path string, lines []string) []finding) error {
		for _, dir := range dirs {
			err := walkGo(filepath.Join(root, dir), func(path string, lines []string) {
				checked++
				findings = append(findings, check(path, lines)...)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := scan([]string{"."}, checkLogging); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error walking %s: %v\n", root, err)
		return 2
	}
	if err := scan(secretDirs, checkZeroing); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error walking %s: %v\n", root, err)
		return 2
	}
	if err := scan(criticalDirs, checkRand); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error walking %s: %v\n", root, err)
		return 2
	}

	_, _ = fmt.Fprintf(out, "Secret Handling Analysis\n")
	_, _ = fmt.Fprintf(out, "========================\n")
	_, _ = fmt.Fprintf(out, "Files checked: %d\n\n", checked)
	if len(findings) == 0 {
		_, _ = fmt.Fprintln(out, "No issues found.")
		return 0
	}

	_, _ = fmt.Fprintf(out, "Potential issues: %d\n\n", len(findings))
	for _, f := range findings {
		_, _ = fmt.Fprintf(out, "%s:%d [%s]\n", f.file, f.line, f.check)
		_, _ = fmt.Fprintf(out, "  Line: %s\n", strings.TrimSpace(f.content))
		_, _ = fmt.Fprintf(out, "  Issue: %s\n\n", f.reason)
	}
	return 1
}

// walkGo calls fn with the lines of every non-test Go file under dir. A
// missing dir is skipped.
func walkGo(dir string, fn func(path string, lines []string)) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case "vendor", ".git", "testdata", "_examples", "analysis", "testutil":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		data, err := os.ReadFile(path) // #nosec G304 - walking the tree given on the command line
		if err != nil {
			return err
		}
		fn(path, strings.Split(string(data), "\n"))
		return nil
	})
}
