// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package shell

import (
	"strings"

	"github.com/chzyer/readline"
)

// Completer implements readline.AutoCompleter over a Registry: the first
// word completes to command names, later words through Command.Complete.
type Completer struct {
	registry *Registry
}

var _ readline.AutoCompleter = (*Completer)(nil)

func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Do implements readline.AutoCompleter. readline appends the returned
// suffixes to the line, so only the part after what was typed is returned.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	parts := strings.Fields(typed)
	newWord := typed == "" || strings.HasSuffix(typed, " ") || strings.HasSuffix(typed, "\t")

	if len(parts) == 0 || (len(parts) == 1 && !newWord) {
		partial := ""
		if len(parts) == 1 {
			partial = parts[0]
		}
		return suffixes(filterByPrefix(c.registry.Names(), partial), len(partial)), len(partial)
	}

	cmd, ok := c.registry.Lookup(parts[0])
	if !ok || cmd.Complete == nil {
		return nil, 0
	}
	args := parts[1:]
	partial := ""
	if !newWord {
		partial = args[len(args)-1]
		args = args[:len(args)-1]
	}
	return suffixes(filterByPrefix(cmd.Complete(args), partial), len(partial)), len(partial)
}

// suffixes converts candidates to readline suggestions: the remaining part
// after the first n bytes, with a trailing space.
func suffixes(candidates []string, n int) [][]rune {
	out := make([][]rune, 0, len(candidates))
	for _, s := range candidates {
		if n <= len(s) {
			out = append(out, []rune(s[n:]+" "))
		}
	}
	return out
}

// filterByPrefix returns strings that match the prefix (case-insensitive)
func filterByPrefix(strs []string, prefix string) []string {
	prefixLower := strings.ToLower(prefix)
	var result []string
	for _, s := range strs {
		if strings.HasPrefix(strings.ToLower(s), prefixLower) {
			result = append(result, s)
		}
	}
	return result
}
