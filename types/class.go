package types

import "errors"

// ErrClassNotFound reports that no loader could locate a class.
// Per-entry and recoverable: the run continues with the next entry.
var ErrClassNotFound = errors.New("class not found")

// ErrIncompatibleClass reports a class file that was located but cannot be
// used (bad magic, truncated header, unsupported version). It is diagnosed
// where it is detected and swallowed by the preloader.
var ErrIncompatibleClass = errors.New("incompatible class file")

// LoaderKind names the lookup strategy that produced a handle.
type LoaderKind string

const (
	// LoaderPrimary is the application class path.
	LoaderPrimary LoaderKind = "primary"
	// LoaderFallback is the boot-append path.
	LoaderFallback LoaderKind = "fallback"
)

// ClassHandle is a resolved class: where it came from and its raw bytes.
// Handles are immutable once returned by a resolver.
type ClassHandle struct {
	// Name is the dotted binary name, e.g. "a.b.C$D".
	Name string
	// Location is a file path, or "jar!entry" for archive members.
	Location string
	// Loader is the strategy that located the class.
	Loader LoaderKind
	// Data is the raw class file.
	Data []byte
	// MajorVersion and MinorVersion come from the class file header.
	MajorVersion uint16
	MinorVersion uint16
	// SuperName is the dotted name of the superclass ("" for java.lang.Object).
	SuperName string
	// InterfaceCount is the number of directly implemented interfaces.
	InterfaceCount int
}
