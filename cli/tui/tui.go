package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Views with an interactive rendering.
const (
	ViewInspect = "inspect"
	ViewStats   = "stats"
)

// Run starts the TUI for view and blocks until the user quits.
func Run(view string, data any) error {
	model, err := newModel(view, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// IsSupported reports whether view has a TUI.
func IsSupported(view string) bool {
	return view == ViewInspect || view == ViewStats
}

// Static renders the first frame of view without starting a program.
func Static(view string, data any) (string, error) {
	model, err := newModel(view, data)
	if err != nil {
		return "", err
	}
	return model.View(), nil
}

func newModel(view string, data any) (tea.Model, error) {
	switch view {
	case ViewInspect:
		return NewInspectModel(data)
	case ViewStats:
		return NewStatsModel(data)
	default:
		return nil, fmt.Errorf("TUI mode is not supported for %s", view)
	}
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}
