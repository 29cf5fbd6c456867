// Package archive reads JAR files: class and source entries, and the
// Maven descriptor packaged under META-INF/maven.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"graffiti/internal/graph"
)

// PomPattern locates the Maven descriptor inside a JAR.
const PomPattern = "META-INF/maven/**/pom.xml"

// ErrNoEntry is returned when a requested entry is not in the archive.
var ErrNoEntry = errors.New("entry not found")

// Scanner opens JAR files and selects the entries to analyse.
type Scanner struct {
	include []string
	exclude []string
	ignored []string
}

// NewScanner creates a scanner. Include and exclude are doublestar
// patterns matched against entry paths such as "com/x/**". An empty
// include list selects every entry.
func NewScanner(include, exclude []string) (*Scanner, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid entry pattern %q", p)
		}
	}
	return &Scanner{
		include: include,
		exclude: exclude,
		ignored: []string{"module-info", "package-info"},
	}, nil
}

// Archive is an open JAR.
type Archive struct {
	Path string
	// Classes holds the fully qualified name of every selected class entry,
	// sorted.
	Classes []string
	// Sources holds the selected .java entry paths, sorted.
	Sources []string
	Maven   *MavenInfo

	zr      *zip.ReadCloser
	entries map[string]*zip.File
}

// Open reads the JAR's directory. The returned archive must be closed.
func (s *Scanner) Open(jarPath string) (*Archive, error) {
	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", jarPath, err)
	}

	a := &Archive{
		Path:    jarPath,
		zr:      zr,
		entries: make(map[string]*zip.File, len(zr.File)),
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name

		if a.Maven == nil && matches(PomPattern, name) {
			info, err := readPom(f)
			if err != nil {
				// A broken descriptor only loses the index page details.
				a.Maven = &MavenInfo{}
			} else {
				a.Maven = info
			}
			continue
		}

		switch {
		case strings.HasSuffix(name, ".class"):
			if !s.selected(name) {
				continue
			}
			fqn := EntryToFQN(name)
			a.entries[name] = f
			a.Classes = append(a.Classes, fqn)
		case strings.HasSuffix(name, ".java"):
			if !s.selected(name) {
				continue
			}
			a.entries[name] = f
			a.Sources = append(a.Sources, name)
		}
	}

	sort.Strings(a.Classes)
	sort.Strings(a.Sources)
	return a, nil
}

func (s *Scanner) selected(name string) bool {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	for _, ign := range s.ignored {
		if base == ign {
			return false
		}
	}
	for _, p := range s.exclude {
		if matches(p, name) {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, p := range s.include {
		if matches(p, name) {
			return true
		}
	}
	return false
}

func matches(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// EntryToFQN converts "com/x/Order.class" to "com.x.Order".
func EntryToFQN(entry string) string {
	return strings.ReplaceAll(strings.TrimSuffix(entry, ".class"), "/", ".")
}

// FQNToEntry converts "com.x.Order" to "com/x/Order.class".
func FQNToEntry(fqn string) string {
	return strings.ReplaceAll(fqn, ".", "/") + ".class"
}

// Name is the JAR's file name.
func (a *Archive) Name() string {
	return filepath.Base(a.Path)
}

// IsSourceOnly reports whether the archive has sources but no classes.
func (a *Archive) IsSourceOnly() bool {
	return len(a.Classes) == 0 && len(a.Sources) > 0
}

// Populate adds a Resolved node for every class entry and returns the
// number of entries registered.
func (a *Archive) Populate(r *graph.Registry) int {
	for _, fqn := range a.Classes {
		r.GetOrCreate(fqn)
	}
	return len(a.Classes)
}

// ReadClass returns the bytes of the class entry for fqn.
func (a *Archive) ReadClass(fqn string) ([]byte, error) {
	return a.ReadEntry(FQNToEntry(fqn))
}

// ReadEntry returns the bytes of a selected entry.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoEntry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", name, err)
	}
	return data, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.zr.Close()
}
