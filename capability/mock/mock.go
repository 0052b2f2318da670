package mock

import (
	"context"

	"go.hackfix.me/rowlog/capability/types"
)

// Mock is a capability that records its initialization, and can be made to
// fail it.
type Mock struct {
	Initialized bool
	typ         types.Type
	failErr     error // to simulate errors
}

var _ types.Capability = &Mock{}

// New returns a new Mock capability of the given type.
func New(typ types.Type) *Mock {
	return &Mock{typ: typ}
}

// Type implements the types.Capability interface.
func (m *Mock) Type() types.Type {
	return m.typ
}

// Init implements the types.Capability interface.
func (m *Mock) Init(_ context.Context) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.Initialized = true
	return nil
}

// SetFailError makes subsequent Init calls return err.
func (m *Mock) SetFailError(err error) {
	m.failErr = err
}
