// Package ui renders terminal output for the campussync CLI.
package ui

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var errNotInteractive = errors.New("not running in a terminal; pass --yes to confirm")

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func init() {
	if !IsInteractive() || termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// DisableColor turns off styling for all later output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// RenderPass styles s as a success.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles s as a warning.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail styles s as a failure.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderAccent highlights s, typically a name or count.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderMuted de-emphasizes secondary text.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// Confirm asks a yes/no question on the terminal. It fails when there is no
// terminal to ask on.
func Confirm(title, description string) (bool, error) {
	if !IsInteractive() {
		return false, errNotInteractive
	}

	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
