// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package shell

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote is returned for a line that ends inside quotes.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Tokenize splits a line into words. Single and double quotes group words,
// and a backslash escapes the next character outside single quotes.
// An empty quoted string yields an empty token.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
		escaped bool
	)

	for _, ch := range line {
		switch {
		case escaped:
			current.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inToken = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				current.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inToken = true
		case ch == ' ' || ch == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(ch)
			inToken = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// ParseCommand splits a line into the command name and its arguments.
// A blank line yields an empty name.
func ParseCommand(line string) (string, []string, error) {
	tokens, err := Tokenize(strings.TrimSpace(line))
	if err != nil {
		return "", nil, err
	}
	if len(tokens) == 0 {
		return "", nil, nil
	}
	return tokens[0], tokens[1:], nil
}
