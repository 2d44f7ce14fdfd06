package chipset

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownDevice = errors.New("chipset: unknown device type")
	ErrUnknownCPU    = errors.New("chipset: unknown cpu type")
)

// Factory creates a new, unrealized device instance.
type Factory func() Device

var registry = struct {
	mu       sync.RWMutex
	devices  map[string]Factory
	cpuTypes map[string]uint64
}{
	devices:  make(map[string]Factory),
	cpuTypes: make(map[string]uint64),
}

// Register adds a device factory under the given type name. Registration
// happens from package init functions; duplicate names are a programming
// error and panic.
func Register(name string, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.devices[name]; exists {
		panic(fmt.Sprintf("chipset: device type %q registered twice", name))
	}
	registry.devices[name] = factory
}

// Registered reports whether a device type name is known.
func Registered(name string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	_, ok := registry.devices[name]
	return ok
}

// TryNew creates an unrealized device of the given type. Returns
// ErrUnknownDevice when no factory is registered; callers treat that as
// "try the next candidate", not as a failure.
func TryNew(name string) (Device, error) {
	registry.mu.RLock()
	factory, ok := registry.devices[name]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	return factory(), nil
}

// RegisterCPUType declares a known CPU type and its default timebase rate.
func RegisterCPUType(name string, defaultTimebaseHz uint64) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.cpuTypes[name]; exists {
		panic(fmt.Sprintf("chipset: cpu type %q registered twice", name))
	}
	registry.cpuTypes[name] = defaultTimebaseHz
}

// NewCPU creates a CPU of the given registered type.
func NewCPU(name string, index int) (*CPU, error) {
	registry.mu.RLock()
	timebase, ok := registry.cpuTypes[name]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCPU, name)
	}
	return &CPU{Type: name, Index: index, TimebaseHz: timebase}, nil
}
