package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/preload/cli/reader"
)

// StatsModel shows archive counts as stat boxes.
type StatsModel struct {
	stats    *reader.ArchiveStats
	width    int
	quitting bool
}

// NewStatsModel creates a stats model.
func NewStatsModel(data any) (StatsModel, error) {
	s, ok := data.(*reader.ArchiveStats)
	if !ok || s == nil {
		return StatsModel{}, fmt.Errorf("stats view needs *reader.ArchiveStats, got %T", data)
	}
	return StatsModel{stats: s}, nil
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.stats

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Archive Statistics"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Records", s.Records, highlightColor),
		statBox("Loaded", s.Loaded, successColor),
		statBox("Source", s.Source, warningColor),
		statBox("Runs", s.Runs, primaryColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Primary", s.Primary, highlightColor),
		statBox("Fallback", s.Fallback, warningColor),
	))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Class bytes:"), ValueStyle.Render(fmt.Sprint(s.TotalBytes)))
	majors := make([]string, 0, len(s.ByMajor))
	for v := range s.ByMajor {
		majors = append(majors, v)
	}
	slices.Sort(majors)
	for _, v := range majors {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Major "+v+":"), ValueStyle.Render(fmt.Sprint(s.ByMajor[v])))
	}

	if rm := s.RunMetrics; rm != nil {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Run " + rm.RunID))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			statBox("Not found", int(rm.NotFound), errorColor),
			statBox("Incompatible", int(rm.Incompatible), mutedColor),
			statBox("Rejected", int(rm.Rejected), errorColor),
		))
	}

	return b.String() + "\n" + HelpStyle.Render("Press q to quit")
}

func statBox(label string, value int, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprint(value))
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}
