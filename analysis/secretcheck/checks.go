// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"regexp"
	"strings"
)

type finding struct {
	check   string
	file    string
	line    int
	content string
	reason  string
}

// Identifiers that usually hold secret material.
var secretIdent = regexp.MustCompile(`(?i)\b(wif|wifs|password|passphrase|pw|priv|privkey|privatekey|secret)\b`)

// Calls whose arguments end up on a terminal, in a log or in an error.
var outputCall = regexp.MustCompile(`\b(util\.(Debug|Warn)|fmt\.(Print|Printf|Println|Fprint|Fprintf|Fprintln|Sprintf|Sprint|Errorf)|log\.\w+|slog\.\w+|\.(ok|warn|line|fields))\(`)

// Calls that hand back a secret the caller owns.
var secretSource = regexp.MustCompile(`\b(readSecret|ReadPassword|RunPasswordCommand|newPassphrase|password)\(`)

var wipeCall = regexp.MustCompile(`\b(ZeroBytes|zeroBytes|zeroBuffer|ZeroKey|Zero)\(`)

var funcDecl = regexp.MustCompile(`^func\s+(\([^)]+\)\s+)?(\w+)`)

var mathRandImport = regexp.MustCompile(`"math/rand(/v2)?"`)

// ownerFuncs return a secret to their caller, which wipes it.
var ownerFuncs = map[string]bool{
	"password":           true,
	"promptSecret":       true,
	"newPassphrase":      true,
	"RunPasswordCommand": true,
	"decodeHelperOutput": true,
}

// checkLogging flags output calls that mention a secret identifier outside
// of string literals. Public key derivations are allowed.
func checkLogging(path string, lines []string) []finding {
	var out []finding
	for i, line := range lines {
		if isComment(line) {
			continue
		}
		code := stripStrings(line)
		loc := outputCall.FindStringIndex(code)
		if loc == nil {
			continue
		}
		args := code[loc[1]:]
		if strings.Contains(args, "PublicKey") || !secretIdent.MatchString(args) {
			continue
		}
		out = append(out, finding{
			check:   "log",
			file:    path,
			line:    i + 1,
			content: line,
			reason:  "secret value passed to an output call",
		})
	}
	return out
}

// checkZeroing flags functions that obtain a secret and contain no wipe
// call. Functions returning the secret to their caller are skipped.
func checkZeroing(path string, lines []string) []finding {
	var (
		out       []finding
		inFunc    bool
		name      string
		depth     int
		opened    bool
		sourceAt  int
		sourceRaw string
		wiped     bool
	)
	finish := func() {
		if inFunc && sourceAt > 0 && !wiped && !ownerFuncs[name] {
			out = append(out, finding{
				check:   "zero",
				file:    path,
				line:    sourceAt,
				content: sourceRaw,
				reason:  "secret obtained in " + name + " is never wiped",
			})
		}
		inFunc = false
	}

	for i, line := range lines {
		code := stripStrings(line)
		if isComment(code) {
			continue
		}
		if m := funcDecl.FindStringSubmatch(code); m != nil {
			finish()
			inFunc, name = true, m[2]
			depth, opened = 0, false
			sourceAt, sourceRaw, wiped = 0, "", false
		} else if inFunc && secretSource.MatchString(code) && sourceAt == 0 {
			sourceAt, sourceRaw = i+1, line
		}
		if !inFunc {
			continue
		}
		if wipeCall.MatchString(code) {
			wiped = true
		}
		if strings.Contains(code, "{") {
			opened = true
		}
		depth += strings.Count(code, "{") - strings.Count(code, "}")
		if opened && depth <= 0 {
			finish()
		}
	}
	finish()
	return out
}

// checkRand flags math/rand imports.
func checkRand(path string, lines []string) []finding {
	var out []finding
	for i, line := range lines {
		if isComment(line) || !mathRandImport.MatchString(line) {
			continue
		}
		out = append(out, finding{
			check:   "rand",
			file:    path,
			line:    i + 1,
			content: line,
			reason:  "math/rand in key handling code; use crypto/rand",
		})
	}
	return out
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "//")
}

// stripStrings empties the contents of string literals on one line and
// drops a trailing line comment.
func stripStrings(line string) string {
	var (
		b       strings.Builder
		quote   rune
		escaped bool
	)
	for i, ch := range line {
		switch {
		case quote == 0 && ch == '/' && strings.HasPrefix(line[i:], "//"):
			return b.String()
		case quote == 0 && (ch == '"' || ch == '`' || ch == '\''):
			quote = ch
			b.WriteRune(ch)
		case quote == 0:
			b.WriteRune(ch)
		case escaped:
			escaped = false
		case ch == '\\' && quote != '`':
			escaped = true
		case ch == quote:
			quote = 0
			b.WriteRune(ch)
		}
	}
	return b.String()
}
