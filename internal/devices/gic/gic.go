// Package gic implements a simplified ARM generic interrupt controller used
// as the machine's root interrupt controller.
package gic

import (
	"fmt"
	"sync"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

const (
	// DefaultSize covers the distributor plus the CPU interface page.
	DefaultSize = 0x2000
)

// GIC models an interrupt controller with an arbitrary number of input
// lines. Any asserted input raises the IRQ output toward the CPUs; the FIQ
// output (index 1) is never driven by this model.
type GIC struct {
	name string

	in  chipset.InputLines
	out chipset.OutputLines

	mu      sync.Mutex
	region  hv.MemoryRegion
	pending map[int]bool
}

func New(name string) *GIC {
	g := &GIC{name: name, pending: make(map[int]bool)}
	g.in.OnChange(g.inputChanged)
	return g
}

func (g *GIC) DeviceName() string { return g.name }

func (g *GIC) Realize() error { return nil }

// MapRegion records the distributor's MMIO placement.
func (g *GIC) MapRegion(index int, region hv.MemoryRegion) error {
	if index != 0 {
		return fmt.Errorf("gic: no MMIO region %d", index)
	}
	g.mu.Lock()
	g.region = region
	g.mu.Unlock()
	return nil
}

// InputLine implements chipset.LineTarget.
func (g *GIC) InputLine(index int) (chipset.Line, error) {
	if index < 0 {
		return nil, fmt.Errorf("gic: negative input line %d", index)
	}
	return g.in.Line(index), nil
}

// ConnectOutputLine implements chipset.LineSource; output 0 is the IRQ pin,
// output 1 the FIQ pin toward a CPU.
func (g *GIC) ConnectOutputLine(index int, target chipset.Line) error {
	return g.out.Connect(index, target)
}

// AllocatedLines reports how many distinct input lines have been handed out.
func (g *GIC) AllocatedLines() int { return g.in.Count() }

// PendingLine reports whether an input line is currently asserted.
func (g *GIC) PendingLine(index int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending[index]
}

func (g *GIC) inputChanged(index int, level bool) {
	g.mu.Lock()
	g.pending[index] = level
	anyPending := false
	for _, p := range g.pending {
		if p {
			anyPending = true
			break
		}
	}
	g.mu.Unlock()

	g.out.Set(0, anyPending)
}

func init() {
	chipset.Register("gic-400", func() chipset.Device { return New("gic-400") })
	chipset.Register("cortex-a15-gic", func() chipset.Device { return New("cortex-a15-gic") })
	chipset.Register("cortex-a9-gic", func() chipset.Device { return New("cortex-a9-gic") })
}
