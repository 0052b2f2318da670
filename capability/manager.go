package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	aerrors "go.hackfix.me/rowlog/app/errors"
	ctypes "go.hackfix.me/rowlog/capability/types"
)

// Manager initializes capabilities at startup in registration order, and
// provides access to the ones that initialized successfully.
type Manager struct {
	regs        []ctypes.Registration
	active      map[ctypes.Type]ctypes.Capability
	logger      *slog.Logger
	initTimeout time.Duration
}

// NewManager returns a new Manager for the given capability registrations.
// Each capability type may only be registered once.
func NewManager(regs []ctypes.Registration, opts ...Option) (*Manager, error) {
	seen := make(map[ctypes.Type]struct{}, len(regs))
	for _, reg := range regs {
		if reg.Capability == nil {
			return nil, errors.New("capability implementation is required")
		}
		typ := reg.Capability.Type()
		if _, ok := seen[typ]; ok {
			return nil, fmt.Errorf("capability '%s' is registered more than once", typ)
		}
		seen[typ] = struct{}{}
	}

	m := &Manager{
		regs:   regs,
		active: make(map[ctypes.Type]ctypes.Capability, len(regs)),
	}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Init initializes all registered capabilities sequentially. If a capability
// with PolicyFatal fails, initialization stops and the error is returned. If a
// capability with PolicyWarn fails, the failure is logged and the capability
// remains unavailable.
func (m *Manager) Init(ctx context.Context) error {
	for _, reg := range m.regs {
		typ := reg.Capability.Type()
		logger := m.logger.With("capability", typ, "policy", reg.Policy)
		logger.Debug("initializing capability")

		if err := m.initOne(ctx, reg.Capability); err != nil {
			if reg.Policy == ctypes.PolicyFatal {
				return aerrors.NewWithCause(
					fmt.Sprintf("failed initializing %s capability", typ), err,
					"capability", typ)
			}
			logger.Warn("failed initializing capability; continuing without it", "cause", err)
			continue
		}

		m.active[typ] = reg.Capability
		logger.Debug("initialized capability")
	}

	return nil
}

func (m *Manager) initOne(ctx context.Context, c ctypes.Capability) error {
	if m.initTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.initTimeout)
		defer cancel()
	}
	return c.Init(ctx)
}

// Get returns the capability of the given type if it initialized successfully.
func (m *Manager) Get(typ ctypes.Type) (ctypes.Capability, bool) {
	c, ok := m.active[typ]
	return c, ok
}

// Active returns the types of the initialized capabilities, in registration
// order.
func (m *Manager) Active() []ctypes.Type {
	types := make([]ctypes.Type, 0, len(m.active))
	for _, reg := range m.regs {
		typ := reg.Capability.Type()
		if _, ok := m.active[typ]; ok {
			types = append(types, typ)
		}
	}
	return types
}

// Lookup returns the initialized capability of the given type as its concrete
// implementation T.
//
//nolint:ireturn // Intentional, this is a generic function.
func Lookup[T ctypes.Capability](m *Manager, typ ctypes.Type) (T, error) {
	var zero T
	if m == nil {
		return zero, ctypes.UnavailableError{Type: typ}
	}
	c, ok := m.Get(typ)
	if !ok {
		return zero, ctypes.UnavailableError{Type: typ}
	}
	impl, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("capability '%s' has unexpected implementation %T", typ, c)
	}
	return impl, nil
}
