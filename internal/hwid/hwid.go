// Package hwid resolves the machine identity sent with every authenticated
// request. Lookups never fail: any error or empty result collapses into
// Sentinel.
package hwid

import (
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel is reported when no machine identity can be determined
const Sentinel = "UNKNOWN_HWID"

// MachineIdentity produces a locally stable identifier for the host.
// Implementations must never return an empty string.
type MachineIdentity interface {
	HWID() string
}

// Func adapts a fallible lookup into a MachineIdentity
type Func func() (string, error)

// HWID implements MachineIdentity
func (f Func) HWID() string {
	return Resolve(f, nil)
}

// Static is a fixed identity, used in tests and when the host program
// already knows its device id.
type Static string

// HWID implements MachineIdentity
func (s Static) HWID() string {
	if v := strings.TrimSpace(string(s)); v != "" {
		return v
	}
	return Sentinel
}

// Resolve runs lookup and absorbs every failure mode, panics included, into Sentinel.
func Resolve(lookup func() (string, error), logger *slog.Logger) (id string) {
	if logger == nil {
		logger = slog.Default()
	}
	if lookup == nil {
		return Sentinel
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Machine identity lookup panicked, using sentinel",
				slog.String("panic", fmt.Sprint(r)))
			id = Sentinel
		}
	}()

	value, err := lookup()
	if err != nil {
		logger.Warn("Machine identity unavailable, using sentinel",
			slog.String("error", err.Error()))
		return Sentinel
	}

	value = strings.TrimSpace(value)
	if value == "" {
		logger.Warn("Machine identity lookup returned empty value, using sentinel")
		return Sentinel
	}
	return value
}

// SystemIdentity reads the platform identifier on every call; the value is
// not cached so a changed host is reported as such.
type SystemIdentity struct {
	logger *slog.Logger
	lookup func() (string, error)
}

// System returns the identity provider for the running platform
func System(logger *slog.Logger) *SystemIdentity {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemIdentity{
		logger: logger.With("component", "hwid"),
		lookup: platformID,
	}
}

// HWID implements MachineIdentity
func (s *SystemIdentity) HWID() string {
	id := Resolve(s.lookup, s.logger)
	s.logger.Debug("Machine identity resolved", slog.Bool("sentinel", id == Sentinel))
	return id
}
