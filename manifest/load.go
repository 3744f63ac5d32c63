package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pithecene-io/preload/iox"
)

// ErrUnreadable is returned when the manifest cannot be opened or read.
var ErrUnreadable = errors.New("manifest unreadable")

// maxLineSize bounds a single manifest line. Class names plus a source
// path comfortably fit; longer lines are treated as unreadable input.
const maxLineSize = 1 << 20

// Counts tallies the line kinds seen while parsing.
type Counts struct {
	Lines    int `json:"lines"`
	Entries  int `json:"entries"`
	Blank    int `json:"blank"`
	Comments int `json:"comments"`
	Arrays   int `json:"arrays"`
}

// Manifest is a fully parsed class list.
type Manifest struct {
	// Entries are in manifest order.
	Entries []Entry
	Counts  Counts
}

// WarnFunc receives skipped-but-reportable lines (array entries).
type WarnFunc func(line int, text string)

// Load reads and parses the manifest at path.
// A missing or unreadable file wraps ErrUnreadable.
func Load(path string, warn WarnFunc) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer iox.DiscardClose(f)

	return Parse(f, warn)
}

// Parse parses every line of r. The first fatal line aborts parsing and
// is returned as a *ParseError carrying its line number.
func Parse(r io.Reader, warn WarnFunc) (*Manifest, error) {
	m := &Manifest{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		entry, kind, err := ParseLine(raw)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = lineNo
			}
			return nil, err
		}

		switch kind {
		case LineEntry:
			entry.Line = lineNo
			m.Entries = append(m.Entries, entry)
			m.Counts.Entries++
		case LineBlank:
			m.Counts.Blank++
		case LineComment:
			m.Counts.Comments++
		case LineArray:
			m.Counts.Arrays++
			if warn != nil {
				warn(lineNo, strings.TrimSpace(raw))
			}
		}
	}
	m.Counts.Lines = lineNo

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return m, nil
}

// Names returns the entry names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Name
	}
	return names
}
