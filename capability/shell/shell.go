// Package shell implements the shell capability, which runs external programs
// from an allowlist.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zpatrick/rbac"

	"go.hackfix.me/rowlog/capability/types"
)

const execAction = "exec"

// Runner executes a program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Shell runs programs whose names match one of the allowed glob patterns.
type Shell struct {
	allow []string
	run   Runner
	role  *rbac.Role
}

var _ types.Capability = &Shell{}

// New returns a new shell capability that allows running programs matching
// the given glob patterns, e.g. "xdg-open" or "/usr/bin/*".
func New(allow []string, opts ...Option) *Shell {
	s := &Shell{allow: allow, run: execRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Shell.
type Option func(*Shell)

// WithRunner sets the function used to run programs.
func WithRunner(run Runner) Option {
	return func(s *Shell) {
		s.run = run
	}
}

// Type implements the types.Capability interface.
func (s *Shell) Type() types.Type {
	return types.Shell
}

// Init implements the types.Capability interface.
func (s *Shell) Init(_ context.Context) error {
	if len(s.allow) == 0 {
		return errors.New("no programs are allowed to run")
	}

	perms := make([]rbac.Permission, 0, len(s.allow))
	for _, pattern := range s.allow {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			return errors.New("empty program pattern in shell allowlist")
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid program pattern '%s': %w", pattern, err)
		}
		perms = append(perms, rbac.NewGlobPermission(execAction, pattern))
	}
	s.role = &rbac.Role{RoleID: "shell", Permissions: perms}

	return nil
}

// Allowed returns true if the named program may be run.
func (s *Shell) Allowed(name string) (bool, error) {
	if s.role == nil {
		return false, errors.New("shell capability isn't initialized")
	}
	ok, err := s.role.Can(execAction, name)
	if err != nil {
		return false, fmt.Errorf("failed checking permission for program '%s': %w", name, err)
	}
	return ok, nil
}

// Exec runs the named program with args, and returns its combined output.
func (s *Shell) Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	ok, err := s.Allowed(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("program '%s' is not allowed to run", name)
	}

	out, err := s.run(ctx, name, args...)
	if err != nil {
		return out, fmt.Errorf("failed running '%s': %w", name, err)
	}

	return out, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}
