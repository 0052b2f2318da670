package migrator

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.hackfix.me/rowlog/crypto"
)

// Registry is an immutable, version-ordered list of migrations.
type Registry struct {
	migrations []*Migration
	byVersion  map[uint]*Migration
}

// NewRegistry validates the given migrations and returns a Registry with them
// sorted by ascending version. The passed migrations are copied, so later
// changes to them don't affect the Registry.
func NewRegistry(migs ...*Migration) (*Registry, error) {
	if len(migs) == 0 {
		return nil, ErrEmptyRegistry
	}

	reg := &Registry{
		migrations: make([]*Migration, 0, len(migs)),
		byVersion:  make(map[uint]*Migration, len(migs)),
	}
	for _, m := range migs {
		if m == nil {
			return nil, errors.New("migration is nil")
		}
		if m.Version == 0 {
			return nil, fmt.Errorf("migration '%s' must have a version greater than 0", m.Description)
		}
		if m.Direction != MigrationUp {
			return nil, fmt.Errorf("migration %s has unsupported direction '%s'", m, m.Direction)
		}
		if strings.TrimSpace(m.Script) == "" {
			return nil, fmt.Errorf("migration %s has an empty script", m)
		}
		if prev, ok := reg.byVersion[m.Version]; ok {
			return nil, DuplicateVersionError{
				Version: m.Version, First: prev.Description, Second: m.Description,
			}
		}

		mc := *m
		mc.checksum = crypto.Checksum([]byte(mc.Script))
		reg.migrations = append(reg.migrations, &mc)
		reg.byVersion[mc.Version] = &mc
	}

	slices.SortFunc(reg.migrations, func(a, b *Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})

	return reg, nil
}

// Migrations returns a copy of the registered migrations in ascending version
// order.
func (r *Registry) Migrations() []*Migration {
	migs := make([]*Migration, len(r.migrations))
	for i, m := range r.migrations {
		mc := *m
		migs[i] = &mc
	}
	return migs
}

// Get returns the migration with the given version.
func (r *Registry) Get(version uint) (*Migration, bool) {
	m, ok := r.byVersion[version]
	if !ok {
		return nil, false
	}
	mc := *m
	return &mc, true
}

// Latest returns the highest registered version.
func (r *Registry) Latest() uint {
	return r.migrations[len(r.migrations)-1].Version
}

// Len returns the number of registered migrations.
func (r *Registry) Len() int {
	return len(r.migrations)
}

// After returns the migrations with a version greater than version, in
// ascending order.
func (r *Registry) After(version uint) []*Migration {
	idx, _ := slices.BinarySearchFunc(r.migrations, version+1, func(m *Migration, v uint) int {
		return cmp.Compare(m.Version, v)
	})
	migs := make([]*Migration, 0, len(r.migrations)-idx)
	for _, m := range r.migrations[idx:] {
		mc := *m
		migs = append(migs, &mc)
	}
	return migs
}
