// Package classfile reads the header of a compiled class file: magic,
// version, constant pool, and the class/superclass/interfaces block that
// follows it. Fields, methods and attributes are not decoded.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// DefaultMaxMajorVersion is the newest class file major version accepted
// when no explicit limit is configured.
const DefaultMaxMajorVersion uint16 = 69

// Sentinel errors.
var (
	ErrBadMagic  = errors.New("classfile: bad magic")
	ErrTruncated = errors.New("classfile: truncated")
	ErrMalformed = errors.New("classfile: malformed constant pool")
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// Info is the decoded header. Class names are in internal form
// ("java/lang/Object"); use Name for the dotted form.
type Info struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    string
	// SuperClass is empty only for java/lang/Object and module-info.
	SuperClass string
	Interfaces []string
}

// Name returns the dotted binary name of the class.
func (i Info) Name() string { return DottedName(i.ThisClass) }

// SuperName returns the dotted binary name of the superclass.
func (i Info) SuperName() string { return DottedName(i.SuperClass) }

// DottedName converts an internal name to its dotted form.
func DottedName(internal string) string { return strings.ReplaceAll(internal, "/", ".") }

// InternalName converts a dotted binary name to internal form.
func InternalName(dotted string) string { return strings.ReplaceAll(dotted, ".", "/") }

// VersionError reports a class file newer than the configured limit.
type VersionError struct {
	Major uint16
	Max   uint16
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("classfile: unsupported major version %d (max %d)", e.Major, e.Max)
}

// CheckVersion returns a *VersionError when major exceeds limit.
func CheckVersion(major, limit uint16) error {
	if major > limit {
		return &VersionError{Major: major, Max: limit}
	}
	return nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) u1() (uint8, error) {
	if r.off+1 > len(r.data) {
		return 0, fmt.Errorf("%w at offset %d", ErrTruncated, r.off)
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if r.off+2 > len(r.data) {
		return 0, fmt.Errorf("%w at offset %d", ErrTruncated, r.off)
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, fmt.Errorf("%w at offset %d", ErrTruncated, r.off)
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("%w at offset %d", ErrTruncated, r.off)
	}
	v := r.data[r.off : r.off+n]
	r.off += n
	return v, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

type constant struct {
	tag      uint8
	utf8     string
	nameIdx  uint16 // CONSTANT_Class
	occupied bool
}

// Parse decodes the header of a class file.
func Parse(data []byte) (Info, error) {
	r := &reader{data: data}

	magic, err := r.u4()
	if err != nil {
		return Info{}, err
	}
	if magic != Magic {
		return Info{}, fmt.Errorf("%w: %#08x", ErrBadMagic, magic)
	}

	var info Info
	if info.MinorVersion, err = r.u2(); err != nil {
		return Info{}, err
	}
	if info.MajorVersion, err = r.u2(); err != nil {
		return Info{}, err
	}

	pool, err := readPool(r)
	if err != nil {
		return Info{}, err
	}

	if info.AccessFlags, err = r.u2(); err != nil {
		return Info{}, err
	}

	thisIdx, err := r.u2()
	if err != nil {
		return Info{}, err
	}
	if info.ThisClass, err = className(pool, thisIdx); err != nil {
		return Info{}, fmt.Errorf("this_class: %w", err)
	}

	superIdx, err := r.u2()
	if err != nil {
		return Info{}, err
	}
	if superIdx != 0 {
		if info.SuperClass, err = className(pool, superIdx); err != nil {
			return Info{}, fmt.Errorf("super_class: %w", err)
		}
	}

	count, err := r.u2()
	if err != nil {
		return Info{}, err
	}
	if count > 0 {
		info.Interfaces = make([]string, 0, count)
	}
	for range count {
		idx, err := r.u2()
		if err != nil {
			return Info{}, err
		}
		name, err := className(pool, idx)
		if err != nil {
			return Info{}, fmt.Errorf("interfaces: %w", err)
		}
		info.Interfaces = append(info.Interfaces, name)
	}

	return info, nil
}

// readPool reads the constant pool. Index 0 is unused; long and double
// entries occupy two slots.
func readPool(r *reader) ([]constant, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	pool := make([]constant, count)

	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		c := constant{tag: tag, occupied: true}

		switch tag {
		case tagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			c.utf8 = string(b)
		case tagClass:
			if c.nameIdx, err = r.u2(); err != nil {
				return nil, err
			}
		case tagString, tagMethodType, tagModule, tagPackage:
			err = r.skip(2)
		case tagMethodHandle:
			err = r.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			err = r.skip(4)
		case tagLong, tagDouble:
			err = r.skip(8)
		default:
			return nil, fmt.Errorf("%w: unknown tag %d at index %d", ErrMalformed, tag, i)
		}
		if err != nil {
			return nil, err
		}

		pool[i] = c
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	return pool, nil
}

func className(pool []constant, idx uint16) (string, error) {
	if int(idx) >= len(pool) || !pool[idx].occupied || pool[idx].tag != tagClass {
		return "", fmt.Errorf("%w: index %d is not a class", ErrMalformed, idx)
	}
	nameIdx := pool[idx].nameIdx
	if int(nameIdx) >= len(pool) || !pool[nameIdx].occupied || pool[nameIdx].tag != tagUtf8 {
		return "", fmt.Errorf("%w: index %d is not utf8", ErrMalformed, nameIdx)
	}
	return pool[nameIdx].utf8, nil
}
