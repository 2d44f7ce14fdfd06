// Package pl080 implements the ARM PrimeCell PL080/PL081 DMA controllers.
package pl080

import (
	"fmt"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// PL080 models a DMA controller. Its downstream memory view must be bound to
// the system address space before realize; the machine builder does this as
// a pre-realize fixup.
type PL080 struct {
	name     string
	channels int

	irq chipset.OutputLines

	region     hv.MemoryRegion
	downstream *hv.AddressSpace
}

func New(name string, channels int) *PL080 {
	return &PL080{name: name, channels: channels}
}

func (p *PL080) DeviceName() string { return p.name }

func (p *PL080) Realize() error {
	if p.downstream == nil {
		return fmt.Errorf("%s: downstream address space not bound", p.name)
	}
	return nil
}

// Channels returns the number of DMA channels.
func (p *PL080) Channels() int { return p.channels }

// SetDownstream implements chipset.DMAMaster.
func (p *PL080) SetDownstream(space *hv.AddressSpace) {
	p.downstream = space
}

// Downstream returns the bound address space, or nil before the fixup ran.
func (p *PL080) Downstream() *hv.AddressSpace { return p.downstream }

// MapRegion implements chipset.MMIOMapper.
func (p *PL080) MapRegion(index int, region hv.MemoryRegion) error {
	if index != 0 {
		return fmt.Errorf("%s: no MMIO region %d", p.name, index)
	}
	p.region = region
	return nil
}

// ConnectOutputLine implements chipset.LineSource; output 0 is the combined
// DMACINTR line.
func (p *PL080) ConnectOutputLine(index int, target chipset.Line) error {
	if index != 0 {
		return fmt.Errorf("%s: no output line %d", p.name, index)
	}
	return p.irq.Connect(index, target)
}

func init() {
	chipset.Register("pl080", func() chipset.Device { return New("pl080", 8) })
	chipset.Register("pl081", func() chipset.Device { return New("pl081", 2) })
}
