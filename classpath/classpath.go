// Package classpath locates compiled classes on a search path of
// directories and jar/zip archives.
//
// A Resolver holds two ordered search paths: the primary path (the
// application class path) and the fallback path (the boot-append path).
// Archives are opened and indexed once by Open and stay open until Close.
// A Resolver is safe for concurrent use.
package classpath

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/preload/classfile"
	"github.com/pithecene-io/preload/iox"
	"github.com/pithecene-io/preload/types"
)

// ErrInvalidElement is returned by Open for a path element that is
// neither a directory nor a jar/zip archive.
var ErrInvalidElement = errors.New("invalid class path element")

// Config configures a Resolver.
type Config struct {
	// Primary is searched first, in order.
	Primary []string
	// Fallback is searched when Primary has no match.
	Fallback []string
	// MaxClassVersion is the newest accepted class file major version.
	// Zero means classfile.DefaultMaxMajorVersion.
	MaxClassVersion uint16
}

// element is one entry of a search path.
type element interface {
	// read returns the bytes of the entry at rel ("a/b/C.class") and
	// where it was found. A missing entry returns fs.ErrNotExist.
	read(rel string) ([]byte, string, error)
	io.Closer
}

// Resolver implements class lookup over a primary and a fallback path.
type Resolver struct {
	primary    []element
	fallback   []element
	maxVersion uint16
}

// Open opens every element of both paths. Elements that do not exist are
// skipped. On error every archive opened so far is closed.
func Open(cfg Config) (*Resolver, error) {
	r := &Resolver{maxVersion: cfg.MaxClassVersion}
	if r.maxVersion == 0 {
		r.maxVersion = classfile.DefaultMaxMajorVersion
	}

	var err error
	if r.primary, err = openPath(cfg.Primary); err != nil {
		return nil, err
	}
	if r.fallback, err = openPath(cfg.Fallback); err != nil {
		_ = iox.CloseAll(r.primary...)
		return nil, err
	}
	return r, nil
}

func openPath(paths []string) ([]element, error) {
	elems := make([]element, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		e, err := openElement(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			_ = iox.CloseAll(elems...)
			return nil, err
		}
		elems = append(elems, e)
	}
	return elems, nil
}

func openElement(path string) (element, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return dirElement{root: path}, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jar" && ext != ".zip" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidElement, path)
	}
	return openJar(path)
}

// MaxClassVersion returns the newest accepted class file major version.
func (r *Resolver) MaxClassVersion() uint16 { return r.maxVersion }

// ResolvePrimary looks a class up on the primary path.
func (r *Resolver) ResolvePrimary(ctx context.Context, name string) (*types.ClassHandle, error) {
	return r.resolve(ctx, r.primary, name, types.LoaderPrimary)
}

// ResolveFallback looks a class up on the fallback path.
func (r *Resolver) ResolveFallback(ctx context.Context, name string) (*types.ClassHandle, error) {
	return r.resolve(ctx, r.fallback, name, types.LoaderFallback)
}

// Close releases every open archive.
func (r *Resolver) Close() error {
	return errors.Join(iox.CloseAll(r.primary...), iox.CloseAll(r.fallback...))
}

func (r *Resolver) resolve(ctx context.Context, path []element, name string, loader types.LoaderKind) (*types.ClassHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", types.ErrClassNotFound)
	}

	rel := classfile.InternalName(name) + ".class"
	for _, e := range path {
		data, location, err := e.read(rel)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		return r.handle(name, location, loader, data)
	}
	return nil, fmt.Errorf("%w: %s", types.ErrClassNotFound, name)
}

// handle validates the class file header and builds the handle.
func (r *Resolver) handle(name, location string, loader types.LoaderKind, data []byte) (*types.ClassHandle, error) {
	info, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrIncompatibleClass, location, err)
	}
	if err := classfile.CheckVersion(info.MajorVersion, r.maxVersion); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrIncompatibleClass, location, err)
	}
	if got := info.Name(); got != name {
		return nil, fmt.Errorf("%w: %s (wrong name: %s)", types.ErrClassNotFound, name, got)
	}

	return &types.ClassHandle{
		Name:           name,
		Location:       location,
		Loader:         loader,
		Data:           data,
		MajorVersion:   info.MajorVersion,
		MinorVersion:   info.MinorVersion,
		SuperName:      info.SuperName(),
		InterfaceCount: len(info.Interfaces),
	}, nil
}

type dirElement struct {
	root string
}

func (d dirElement) read(rel string) ([]byte, string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(rel))
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", err
	}
	return data, p, nil
}

func (dirElement) Close() error { return nil }

type jarElement struct {
	path  string
	rc    *zip.ReadCloser
	index map[string]*zip.File
}

func openJar(path string) (*jarElement, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	index := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// First entry wins.
		if _, dup := index[f.Name]; !dup {
			index[f.Name] = f
		}
	}
	return &jarElement{path: path, rc: rc, index: index}, nil
}

func (j *jarElement) read(rel string) (data []byte, location string, err error) {
	f, ok := j.index[rel]
	if !ok {
		return nil, "", fs.ErrNotExist
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", err
	}
	defer iox.CloseInto(&err, rc)

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, "", err
	}
	return data, j.path + "!" + rel, nil
}

func (j *jarElement) Close() error { return j.rc.Close() }
