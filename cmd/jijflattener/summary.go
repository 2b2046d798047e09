// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nuclearfarts/jijflattener/internal/flatten"
)

// renderSummary renders the resolved mods of a run as a table.
func renderSummary(report *flatten.Report) string {
	var sb strings.Builder

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers("MOD", "VERSION", "SOURCE", "ORIGIN").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for _, m := range report.Mods {
		v := m.Version
		if !m.Semantic {
			v += " (opaque)"
		}
		t.Row(m.ID, v, m.Source, m.Origin)
	}

	if len(report.Mods) > 0 {
		sb.WriteString(t.Render())
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "%s %d mod(s) from %d archive(s) in %s\n",
		SuccessStyle.Render("✓"), len(report.Mods), report.Archives, report.Duration)
	if report.DryRun {
		fmt.Fprintf(&sb, "%s dry run, nothing written to %s\n", WarningStyle.Render("!"), report.Output)
	} else {
		fmt.Fprintf(&sb, "%s %s\n", SubtitleStyle.Render("output:"), CmdStyle.Render(report.Output))
	}
	return sb.String()
}
