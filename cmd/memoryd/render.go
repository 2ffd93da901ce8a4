package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

// isTerminal reports whether stdout is a TTY, gating colorized/glamour
// output so piped or redirected output stays plain and parseable.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// renderMarkdown renders md through glamour when stdout is a terminal,
// falling back to the raw markdown text otherwise (scripts and redirected
// output should never have to strip ANSI escapes).
func renderMarkdown(md string) (string, error) {
	if !isTerminal() {
		return md, nil
	}
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("build markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func printHeading(s string) {
	if isTerminal() {
		fmt.Println(styleHeading.Render(s))
	} else {
		fmt.Println(s)
	}
}

func printMuted(s string) {
	if isTerminal() {
		fmt.Println(styleMuted.Render(s))
	} else {
		fmt.Println(s)
	}
}
