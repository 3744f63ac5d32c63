package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/preload/cli/reader"
)

const defaultTableHeight = 20

// InspectModel is a scrollable table of archive records.
type InspectModel struct {
	table    table.Model
	count    int
	quitting bool
}

// NewInspectModel creates an inspect model.
func NewInspectModel(data any) (InspectModel, error) {
	items, ok := data.([]reader.RecordItem)
	if !ok {
		return InspectModel{}, fmt.Errorf("inspect view needs []reader.RecordItem, got %T", data)
	}

	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, table.Row{
			it.Name,
			it.Kind,
			it.Loader,
			strconv.Itoa(int(it.Major)),
			strconv.FormatInt(it.Size, 10),
			it.Where,
		})
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 40},
			{Title: "Kind", Width: 8},
			{Title: "Loader", Width: 9},
			{Title: "Major", Width: 5},
			{Title: "Size", Width: 8},
			{Title: "Where", Width: 48},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)
	return InspectModel{table: t, count: len(items)}, nil
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, header and help take six lines.
		m.table.SetHeight(max(msg.Height-6, 1))
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	title := TitleStyle.Render(fmt.Sprintf("Archive Records (%d)", m.count))
	help := HelpStyle.Render("↑/↓ scroll  q quit")
	return title + "\n" + m.table.View() + "\n" + help
}
