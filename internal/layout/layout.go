// Package layout derives the locations of a run's artifacts from the path
// of one of its event files.
package layout

import (
	"github.com/signalnine/highwin/internal/config"
	"github.com/signalnine/highwin/internal/pathseg"
)

// ConfigPath returns the Sacred config.json of the run that wrote
// eventPath. It sits next to the rightmost config anchor directory.
func ConfigPath(eventPath string, l config.Layout) (string, error) {
	root, err := pathseg.Split(eventPath).Before(l.ConfigAnchor)
	if err != nil {
		return "", err
	}
	return root.Join(l.ConfigRelPath...).String(), nil
}

// ModelPath returns the final model of the run that wrote eventPath. When
// the path lies inside a batch directory (l.PortableMarker) the prefix
// before the marker is dropped so the result is relative and portable;
// otherwise the derived path is returned unchanged.
func ModelPath(eventPath string, l config.Layout) (string, error) {
	root, err := pathseg.Split(eventPath).Before(l.ModelAnchor)
	if err != nil {
		return "", err
	}
	model := root.Join(l.ModelDir)
	if rel, ok := model.From(l.PortableMarker); ok {
		return rel.String(), nil
	}
	return model.String(), nil
}

// Portable reports whether paths under dir can be made relative.
func Portable(dir string, l config.Layout) bool {
	return pathseg.Split(dir).Contains(l.PortableMarker)
}
