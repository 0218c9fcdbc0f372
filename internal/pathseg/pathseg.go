// Package pathseg treats a filesystem path as an ordered sequence of
// segments and offers the anchor and suffix lookups used to navigate
// experiment output directories.
package pathseg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrAnchorNotFound is matched by every AnchorError.
var ErrAnchorNotFound = errors.New("anchor segment not found")

// AnchorError reports a path that does not contain a required segment.
type AnchorError struct {
	Anchor string
	Path   string
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("no %q segment in %q", e.Anchor, e.Path)
}

func (e *AnchorError) Is(target error) bool {
	return target == ErrAnchorNotFound
}

// Path is a path split on the OS separator. An absolute path keeps its
// root as the first segment.
type Path []string

// Split breaks p into segments. Empty segments from repeated separators
// are dropped.
func Split(p string) Path {
	p = filepath.Clean(p)
	var segs Path
	if filepath.IsAbs(p) {
		vol := filepath.VolumeName(p)
		segs = append(segs, vol+string(filepath.Separator))
		p = p[len(vol):]
	}
	for _, s := range strings.Split(p, string(filepath.Separator)) {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	return filepath.Join(p...)
}

// Index returns the position of the leftmost segment equal to name, or -1.
func (p Path) Index(name string) int {
	for i, s := range p {
		if s == name {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the rightmost segment equal to name, or -1.
func (p Path) LastIndex(name string) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == name {
			return i
		}
	}
	return -1
}

// Contains reports whether any segment equals name.
func (p Path) Contains(name string) bool {
	return p.Index(name) >= 0
}

// HasSuffix reports whether the trailing segments equal suffix.
func (p Path) HasSuffix(suffix ...string) bool {
	if len(suffix) > len(p) {
		return false
	}
	tail := p[len(p)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}

// Before returns the segments preceding the rightmost occurrence of anchor.
func (p Path) Before(anchor string) (Path, error) {
	i := p.LastIndex(anchor)
	if i < 0 {
		return nil, &AnchorError{Anchor: anchor, Path: p.String()}
	}
	return append(Path(nil), p[:i]...), nil
}

// From returns the segments starting at the leftmost occurrence of name.
func (p Path) From(name string) (Path, bool) {
	i := p.Index(name)
	if i < 0 {
		return p, false
	}
	return append(Path(nil), p[i:]...), true
}

// Join returns a new Path with elems appended.
func (p Path) Join(elems ...string) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}
