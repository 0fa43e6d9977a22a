package errors

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FormatTUI returns the error formatted beautifully for TUI display with box rendering.
func (e *ActionableError) FormatTUI() string {
	return e.FormatTUIWithTheme("196", "81", "240")
}

// FormatTUIWithTheme formats the error with custom theme colors (ANSI 256 color codes).
func (e *ActionableError) FormatTUIWithTheme(errorColor, accentColor, mutedColor string) string {
	var content strings.Builder

	var entry *RegistryEntry
	if e.Code != "" {
		entry = GetRegistryEntry(e.Code)
	}

	if e.Code != "" {
		title := string(e.Code)
		if entry != nil {
			title = fmt.Sprintf("%s - %s", e.Code, entry.Title)
		}

		titleStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor)).
			Bold(true)

		content.WriteString(titleStyle.Render(title))
		content.WriteString("\n\n")
	}

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	content.WriteString(messageStyle.Render(e.Message))

	if e.Err != nil {
		content.WriteString("\n\n")

		detailsLabel := lipgloss.NewStyle().
			Foreground(lipgloss.Color(mutedColor)).
			Render("Details:")

		content.WriteString(detailsLabel)
		content.WriteString(" ")
		content.WriteString(e.Err.Error())
	}

	if entry != nil && entry.Description != "" {
		content.WriteString("\n\n")

		descStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(mutedColor)).
			Italic(true)

		content.WriteString(descStyle.Render(entry.Description))
	}

	if len(e.Suggestions) > 0 {
		content.WriteString("\n\n")

		headerStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(accentColor)).
			Bold(true)

		content.WriteString(headerStyle.Render("How to fix:"))
		content.WriteString("\n")

		for i, suggestion := range e.Suggestions {
			suggestionStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				PaddingLeft(2)

			line := fmt.Sprintf("%d. %s", i+1, suggestion)
			content.WriteString(suggestionStyle.Render(line))
			content.WriteString("\n")
		}
	}

	helpURL := e.HelpURL
	if helpURL == "" && entry != nil {
		helpURL = entry.HelpURL
	}

	if helpURL != "" {
		content.WriteString("\n")

		helpStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(accentColor))

		label := lipgloss.NewStyle().
			Foreground(lipgloss.Color(mutedColor)).
			Render("For more help:")

		content.WriteString(label)
		content.WriteString(" ")
		content.WriteString(helpStyle.Render(helpURL))
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(errorColor)).
		Padding(1, 2).
		Width(80)

	return boxStyle.Render(content.String())
}

// FormatCompact returns a compact single-line error format (for status bars).
func (e *ActionableError) FormatCompact() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(string(e.Code))
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}
