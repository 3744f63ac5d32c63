package manifest

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Grammar keys. Matching is exact: "source:" has no accepted aliases.
const (
	keyID         = "id:"
	keySuper      = "super:"
	keyInterfaces = "interfaces:"
	keySource     = "source:"
)

var (
	// ErrMalformed is wrapped by ParseError for grammar violations.
	ErrMalformed = errors.New("malformed manifest line")
	// ErrInvariant is wrapped by ParseError when the source/super/interfaces
	// cross-field rules are violated.
	ErrInvariant = errors.New("manifest entry violates source invariant")
)

// LineKind classifies a manifest line.
type LineKind int

const (
	// LineEntry is a class entry.
	LineEntry LineKind = iota
	// LineBlank is an empty line (skipped silently).
	LineBlank
	// LineComment is a line starting with '#' (skipped silently).
	LineComment
	// LineArray is a line starting with '['. Arrays cannot be preloaded;
	// the line is skipped and the caller reports it.
	LineArray
)

func (k LineKind) String() string {
	switch k {
	case LineEntry:
		return "entry"
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineArray:
		return "array"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// ParseError is a fatal manifest error. It aborts the whole run.
type ParseError struct {
	// Line is the 1-based line number, zero when parsing a lone line.
	Line int
	// Text is the trimmed line.
	Text string
	// Reason describes the violation.
	Reason string
	// Err is ErrMalformed or ErrInvariant.
	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("manifest line %d: %s: %q", e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("manifest: %s: %q", e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses one raw manifest line.
//
// Blank, comment and array lines return the zero Entry with the matching
// kind and a nil error. Any grammar or invariant violation returns a
// *ParseError.
func ParseLine(line string) (Entry, LineKind, error) {
	text := strings.TrimSpace(line)
	switch {
	case text == "":
		return Entry{}, LineBlank, nil
	case strings.HasPrefix(text, "#"):
		return Entry{}, LineComment, nil
	case strings.HasPrefix(text, "["):
		return Entry{}, LineArray, nil
	}

	tokens := tokenize(text)
	entry := Entry{
		Name:    strings.ReplaceAll(tokens[0], "/", "."),
		ID:      Unset,
		SuperID: Unset,
	}

	seen := make(map[string]bool, 4)
	for i := 1; i < len(tokens); {
		key := tokens[i]
		i++
		if seen[key] {
			return Entry{}, LineEntry, malformed(text, "duplicate key "+key)
		}
		seen[key] = true

		switch key {
		case keyID, keySuper:
			if i >= len(tokens) {
				return Entry{}, LineEntry, malformed(text, "missing value for "+key)
			}
			v, err := parseID(tokens[i])
			if err != nil {
				return Entry{}, LineEntry, malformed(text, fmt.Sprintf("invalid value for %s %v", key, err))
			}
			if key == keyID {
				entry.ID = v
			} else {
				entry.SuperID = v
			}
			i++

		case keyInterfaces:
			// Greedy: consume integers up to the first non-numeric token.
			for i < len(tokens) {
				if _, err := strconv.Atoi(tokens[i]); err != nil {
					break
				}
				v, err := parseID(tokens[i])
				if err != nil {
					return Entry{}, LineEntry, malformed(text, fmt.Sprintf("invalid interface id %v", err))
				}
				entry.Interfaces = append(entry.Interfaces, v)
				i++
			}

		case keySource:
			if i >= len(tokens) {
				return Entry{}, LineEntry, malformed(text, "missing value for "+key)
			}
			entry.Origin = tokens[i]
			i++

		default:
			return Entry{}, LineEntry, malformed(text, "unrecognized key "+strconv.Quote(key))
		}
	}

	if err := checkInvariant(entry, text); err != nil {
		return Entry{}, LineEntry, err
	}
	return entry, LineEntry, nil
}

// tokenize splits on the space character only; runs of spaces collapse.
// Tabs are not separators and stay inside their token.
func tokenize(text string) []string {
	return slices.DeleteFunc(strings.Split(text, " "), func(t string) bool { return t == "" })
}

// checkInvariant enforces:
//   - origin present => id and super id present
//   - origin absent  => no super id and no interfaces
func checkInvariant(e Entry, text string) error {
	if e.HasOrigin() {
		if !e.HasID() {
			return invariant(text, "source entry requires id:")
		}
		if !e.HasSuper() {
			return invariant(text, "source entry requires super:")
		}
		return nil
	}
	if e.HasSuper() {
		return invariant(text, "super: is only allowed with source:")
	}
	if len(e.Interfaces) > 0 {
		return invariant(text, "interfaces: is only allowed with source:")
	}
	return nil
}

func parseID(tok string) (int, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", tok)
	}
	if v < 0 {
		return 0, fmt.Errorf("%d is negative", v)
	}
	return v, nil
}

func malformed(text, reason string) *ParseError {
	return &ParseError{Text: text, Reason: reason, Err: ErrMalformed}
}

func invariant(text, reason string) *ParseError {
	return &ParseError{Text: text, Reason: reason, Err: ErrInvariant}
}
