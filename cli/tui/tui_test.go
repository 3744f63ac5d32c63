package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/preload/cli/reader"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		view string
		want bool
	}{
		{ViewInspect, true},
		{ViewStats, true},
		{"split", false},
		{"run", false},
		{"version", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.view); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.view, got, tt.want)
		}
	}
}

func TestRun_UnsupportedView(t *testing.T) {
	if err := Run("split", nil); err == nil {
		t.Error("expected error for unsupported view")
	}
}

func TestStatic_Stats(t *testing.T) {
	out, err := Static(ViewStats, &reader.ArchiveStats{
		Records: 12,
		Loaded:  10,
		Source:  2,
		ByMajor: map[string]int{"61": 10},
		RunMetrics: &reader.RunMetrics{
			RunID:    "run-7",
			NotFound: 3,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Archive Statistics", "Records", "12", "Major 61:", "Run run-7", "Not found"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats view missing %q:\n%s", want, out)
		}
	}
}

func TestStatic_WrongPayload(t *testing.T) {
	if _, err := Static(ViewStats, []reader.RecordItem{}); err == nil {
		t.Error("stats view should reject a record list")
	}
	if _, err := Static(ViewInspect, &reader.ArchiveStats{}); err == nil {
		t.Error("inspect view should reject stats")
	}
}

func TestInspectModel_ViewAndQuit(t *testing.T) {
	m, err := NewInspectModel([]reader.RecordItem{
		{Name: "a.A", Kind: "loaded", Loader: "primary", Major: 61, Size: 10, Where: "/cp/a/A.class"},
		{Name: "b.B", Kind: "source", Where: "file:/b.jar"},
	})
	if err != nil {
		t.Fatal(err)
	}

	view := m.View()
	if !strings.Contains(view, "Archive Records (2)") || !strings.Contains(view, "a.A") {
		t.Errorf("unexpected view:\n%s", view)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if got := next.View(); got != "" {
		t.Errorf("view after quit = %q, want empty", got)
	}
}
