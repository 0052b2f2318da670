// Package fs implements the filesystem capability, which gives the
// application access to files within its data directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/rowlog/capability/types"
)

// FS is a filesystem scoped to a root directory. Paths are relative to the
// root, and can't escape it.
type FS struct {
	base  vfs.FileSystem
	root  string
	scope vfs.FileSystem
}

var _ types.Capability = &FS{}

// New returns a new filesystem capability rooted at root within base.
func New(base vfs.FileSystem, root string) *FS {
	return &FS{base: base, root: root}
}

// Type implements the types.Capability interface.
func (f *FS) Type() types.Type {
	return types.FS
}

// Init creates the root directory if it doesn't exist.
func (f *FS) Init(_ context.Context) error {
	if f.root == "" {
		return errors.New("filesystem root directory is required")
	}
	if err := f.base.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("failed creating directory '%s': %w", f.root, err)
	}

	scope, err := projectionfs.New(f.base, f.root)
	if err != nil {
		return fmt.Errorf("failed scoping filesystem to '%s': %w", f.root, err)
	}
	f.scope = scope

	return nil
}

// Root returns the root directory of the scope in the underlying filesystem.
func (f *FS) Root() string {
	return f.root
}

// Abs returns the path in the underlying filesystem of the scoped path name.
func (f *FS) Abs(name string) (string, error) {
	clean, err := f.clean(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, clean), nil
}

// WriteFile writes data to the named file, creating parent directories as
// needed.
func (f *FS) WriteFile(name string, data []byte, perm os.FileMode) error {
	clean, err := f.clean(name)
	if err != nil {
		return err
	}
	if err = f.scope.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for file '%s': %w", name, err)
	}
	if err = vfs.WriteFile(f.scope, clean, data, perm); err != nil {
		return fmt.Errorf("failed writing file '%s': %w", name, err)
	}
	return nil
}

func (f *FS) clean(name string) (string, error) {
	if f.scope == nil {
		return "", errors.New("filesystem capability isn't initialized")
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("path '%s' is outside of the filesystem scope", name)
	}
	return filepath.Join(string(filepath.Separator), name), nil
}
