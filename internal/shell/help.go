// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package shell

import (
	"fmt"
	"io"
	"strings"
)

// ShowHelp lists every command grouped by category. footer, when non-empty,
// is printed after the listing (e.g. the active profile).
func ShowHelp(w io.Writer, registry *Registry, footer string) {
	_, _ = fmt.Fprintln(w, "\nAvailable commands:")

	categories := registry.ByCategory()
	for _, category := range registry.categories() {
		commands := categories[category]
		if len(commands) == 0 {
			continue
		}

		name := category
		if name == "" {
			name = "Other"
		}
		_, _ = fmt.Fprintf(w, "\n%s:\n", name)
		for _, cmd := range commands {
			aliasStr := ""
			if len(cmd.Aliases) > 0 {
				aliasStr = fmt.Sprintf(" (aliases: %s)", strings.Join(cmd.Aliases, ", "))
			}
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			_, _ = fmt.Fprintf(w, "  %-40s - %s%s\n", usage, cmd.Description, aliasStr)
		}
	}

	if footer != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", footer)
	}
	_, _ = fmt.Fprintln(w, "\nFor detailed help on a command, type: help <command>")
}

func ShowCommandHelp(w io.Writer, cmd *Command) {
	_, _ = fmt.Fprintf(w, "\nCommand: %s\n", cmd.Name)

	if len(cmd.Aliases) > 0 {
		_, _ = fmt.Fprintf(w, "Aliases: %s\n", strings.Join(cmd.Aliases, ", "))
	}
	if cmd.Usage != "" {
		_, _ = fmt.Fprintf(w, "Usage: %s\n", cmd.Usage)
	}
	if cmd.Category != "" {
		_, _ = fmt.Fprintf(w, "Category: %s\n", cmd.Category)
	}

	_, _ = fmt.Fprintf(w, "\nDescription:\n%s\n", cmd.Description)

	if cmd.LongHelp != "" {
		_, _ = fmt.Fprintf(w, "\nDetails:\n%s\n", strings.TrimRight(cmd.LongHelp, "\n"))
	}
}
