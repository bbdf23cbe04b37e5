// Package confkit holds the small helpers shared by the configuration loaders:
// path resolution, dotenv bootstrapping and side-file sections.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolvePath expands environment references in file and anchors relative
// results at base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory that relative paths in mainPath resolve against.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// Section points at a configuration file that lives next to the main config.
// File is kept as written until Hydrate resolves it.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File through loader. An empty File is a no-op.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return fmt.Errorf("hydrate %s: %w", p, err)
	}
	s.File, s.Value = p, v
	return nil
}

// Loaded reports whether the section has a value.
func (s *Section[T]) Loaded() bool {
	return s != nil && s.Value != nil
}
