package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type warning struct {
	line int
	text string
}

func TestParse_Scenario(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"a/B",
		"a/B$Inner",
		"",
		"[bad",
		"a/C",
	}, "\n")

	var warnings []warning
	m, err := Parse(strings.NewReader(input), func(line int, text string) {
		warnings = append(warnings, warning{line, text})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.B", "a.B$Inner", "a.C"}, m.Names())
	assert.Equal(t, Counts{Lines: 6, Entries: 3, Blank: 1, Comments: 1, Arrays: 1}, m.Counts)
	assert.Equal(t, []warning{{5, "[bad"}}, warnings)

	assert.Equal(t, 2, m.Entries[0].Line)
	assert.Equal(t, 6, m.Entries[2].Line)
}

func TestParse_NilWarn(t *testing.T) {
	m, err := Parse(strings.NewReader("[I\na/B\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Counts.Arrays)
	assert.Len(t, m.Entries, 1)
}

func TestParse_CRLF(t *testing.T) {
	m, err := Parse(strings.NewReader("a/B\r\na/C id: 3\r\n"), nil)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "a.C", m.Entries[1].Name)
	assert.Equal(t, 3, m.Entries[1].ID)
}

func TestParse_FatalLineCarriesLineNumber(t *testing.T) {
	input := "a/B\n# ok\nx/Y source: /path.jar\na/C\n"

	m, err := Parse(strings.NewReader(input), nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrInvariant)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, "x/Y source: /path.jar", perr.Text)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classlist")
	require.NoError(t, os.WriteFile(path, []byte("a/B\na/C\n"), 0o644))

	m, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.B", "a.C"}, m.Names())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
}
