// Package iox provides I/O helpers for resource cleanup.
package iox

import (
	"errors"
	"io"
)

// DiscardClose closes c and discards the error.
// Use in defer statements on read-only handles:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(resolver))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// CloseInto closes c and joins a close error into *errp.
// Use in defer statements on handles whose close can lose writes:
//
//	defer iox.CloseInto(&err, f)
func CloseInto(errp *error, c io.Closer) {
	if cerr := c.Close(); cerr != nil {
		*errp = errors.Join(*errp, cerr)
	}
}

// CloseAll closes every closer and returns the joined errors.
func CloseAll[C io.Closer](closers ...C) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
