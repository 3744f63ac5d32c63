// Package classfiletest builds minimal class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Class describes the header of a class file to build. Names may be given
// in dotted or internal form.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Major      uint16
	Minor      uint16
	// Padding adds a long constant and a string constant ahead of the
	// class entries so the pool exercises multi-slot entries.
	Padding bool
}

// Bytes encodes c. Major defaults to 52 when zero.
func Bytes(c Class) []byte {
	major := c.Major
	if major == 0 {
		major = 52
	}

	type entry struct {
		tag  byte
		body []byte
	}
	var pool []entry
	slot := 1
	add := func(tag byte, body []byte) uint16 {
		idx := slot
		pool = append(pool, entry{tag, body})
		slot++
		if tag == 5 || tag == 6 {
			slot++
		}
		return uint16(idx)
	}
	utf8 := func(s string) uint16 {
		b := make([]byte, 2+len(s))
		binary.BigEndian.PutUint16(b, uint16(len(s)))
		copy(b[2:], s)
		return add(1, b)
	}
	class := func(name string) uint16 {
		n := utf8(strings.ReplaceAll(name, ".", "/"))
		return add(7, binary.BigEndian.AppendUint16(nil, n))
	}

	if c.Padding {
		add(5, make([]byte, 8))
		s := utf8("padding")
		add(8, binary.BigEndian.AppendUint16(nil, s))
	}

	this := class(c.Name)
	var super uint16
	if c.Super != "" {
		super = class(c.Super)
	}
	ifaces := make([]uint16, 0, len(c.Interfaces))
	for _, i := range c.Interfaces {
		ifaces = append(ifaces, class(i))
	}

	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.BigEndian, v) }
	w(uint32(0xCAFEBABE))
	w(c.Minor)
	w(major)
	w(uint16(slot))
	for _, e := range pool {
		buf.WriteByte(e.tag)
		buf.Write(e.body)
	}
	w(uint16(0x0021)) // ACC_PUBLIC | ACC_SUPER
	w(this)
	w(super)
	w(uint16(len(ifaces)))
	for _, i := range ifaces {
		w(i)
	}
	// fields, methods, attributes
	w(uint16(0))
	w(uint16(0))
	w(uint16(0))
	return buf.Bytes()
}
