package types

import (
	"context"
	"fmt"
)

// Type identifies a capability.
type Type string

// All supported capabilities.
const (
	FS        Type = "fs"
	Dialog    Type = "dialog"
	Shell     Type = "shell"
	Autostart Type = "autostart"
)

// Policy determines how a capability initialization failure is handled.
type Policy int

const (
	// PolicyFatal aborts the application startup if the capability fails to
	// initialize.
	PolicyFatal Policy = iota
	// PolicyWarn logs the initialization failure and continues without the
	// capability.
	PolicyWarn
)

func (p Policy) String() string {
	switch p {
	case PolicyFatal:
		return "fatal"
	case PolicyWarn:
		return "warn"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Capability grants the application access to an OS-level feature.
type Capability interface {
	// Type returns the unique capability identifier.
	Type() Type
	// Init prepares the capability for use. It's called once at startup.
	Init(ctx context.Context) error
}

// Registration pairs a capability with its initialization failure policy.
type Registration struct {
	Capability Capability
	Policy     Policy
}

// UnavailableError is returned when a capability is requested that wasn't
// registered, or failed to initialize.
type UnavailableError struct {
	Type Type
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("capability '%s' is unavailable", e.Type)
}
