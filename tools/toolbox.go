// Package tools finds the external image binaries on PATH and runs them.
package tools

import (
	"os/exec"

	"go.uber.org/zap"
)

// External binaries the converter knows how to drive
const (
	Avifenc = "avifenc"
	Avifdec = "avifdec"
	Dwebp   = "dwebp"
	Cwebp   = "cwebp"
	Sips    = "sips"
	Convert = "convert"
	Magick  = "magick"
)

// Known lists every supported binary in probing order
var Known = []string{Avifenc, Avifdec, Dwebp, Cwebp, Sips, Convert, Magick}

// LookPathFunc resolves a binary name to its full path
type LookPathFunc func(name string) (string, error)

// Toolbox records which external binaries are available
type Toolbox struct {
	paths map[string]string
}

// Detect looks up every known binary with lookPath (exec.LookPath when nil)
func Detect(lookPath LookPathFunc, logger *zap.Logger) *Toolbox {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	tb := &Toolbox{paths: make(map[string]string)}
	for _, name := range Known {
		path, err := lookPath(name)
		if err != nil || path == "" {
			logger.Info("tool not found", zap.String("tool", name))
			continue
		}
		tb.paths[name] = path
		logger.Info("tool found", zap.String("tool", name), zap.String("path", path))
	}
	return tb
}

// NewToolbox builds a toolbox from name→path pairs without probing
func NewToolbox(paths map[string]string) *Toolbox {
	tb := &Toolbox{paths: make(map[string]string, len(paths))}
	for name, path := range paths {
		tb.paths[name] = path
	}
	return tb
}

// Has reports whether the binary was found
func (t *Toolbox) Has(name string) bool {
	_, ok := t.paths[name]
	return ok
}

// Path returns the resolved path of the binary, or "" if missing
func (t *Toolbox) Path(name string) string {
	return t.paths[name]
}

// Available lists found binaries in probing order
func (t *Toolbox) Available() []string {
	available := make([]string, 0, len(t.paths))
	for _, name := range Known {
		if t.Has(name) {
			available = append(available, name)
		}
	}
	return available
}

// Empty reports whether no known binary was found
func (t *Toolbox) Empty() bool {
	return len(t.Available()) == 0
}
