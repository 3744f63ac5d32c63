// Package manifest parses class list manifests.
//
// A manifest is UTF-8 text with one entry per line:
//
//	# comment
//	java/lang/Object id: 0
//	com/example/App id: 7 super: 0 interfaces: 3 4 source: /opt/app.jar
//
// Parsing happens up front and in full: the first malformed line aborts
// the whole manifest, so no worker ever starts on a partially valid list.
package manifest

import "strings"

// Unset marks an absent id or super id.
const Unset = -1

// NestedSeparator marks a nested (inner) class name.
const NestedSeparator = '$'

// Entry is one parsed manifest line. Entries are immutable once parsed.
type Entry struct {
	// Name is the dotted class name ("a/b/C" is normalized to "a.b.C").
	Name string
	// ID is the entry's identifier within the manifest, or Unset.
	ID int
	// SuperID is the identifier of the declared superclass entry, or Unset.
	SuperID int
	// Interfaces are the declared interface identifiers.
	Interfaces []int
	// Origin is the source location tag; empty when absent.
	Origin string
	// Line is the 1-based manifest line number.
	Line int
}

// HasID reports whether the entry declares an id.
func (e Entry) HasID() bool { return e.ID != Unset }

// HasSuper reports whether the entry declares a super id.
func (e Entry) HasSuper() bool { return e.SuperID != Unset }

// HasOrigin reports whether the entry carries a source tag.
func (e Entry) HasOrigin() bool { return e.Origin != "" }

// Nested reports whether the name denotes a nested class.
func (e Entry) Nested() bool { return IsNested(e.Name) }

// IsNested reports whether name contains the nested-name separator.
func IsNested(name string) bool {
	return strings.IndexByte(name, NestedSeparator) >= 0
}

// EntryName returns e.Name. Used as a key function by the partitioner.
func EntryName(e Entry) string { return e.Name }
