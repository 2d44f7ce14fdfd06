// Package pl061 implements the ARM PrimeCell PL061 GPIO controller.
package pl061

import (
	"fmt"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// NumLines is the number of GPIO lines a PL061 exposes.
const NumLines = 8

// PL061 exposes eight GPIO lines in each direction plus a combined
// interrupt output. Device-tree nodes for it are frequently marked both
// "gpio-controller" and "interrupt-controller".
type PL061 struct {
	in  chipset.InputLines
	out chipset.OutputLines
	irq chipset.OutputLines

	region hv.MemoryRegion
}

func New() *PL061 {
	p := &PL061{}
	// A raw input edge is reflected on the combined interrupt output; the
	// per-line mask registers are not modeled.
	p.in.OnChange(func(index int, level bool) {
		p.irq.Set(0, level)
	})
	return p
}

func (p *PL061) DeviceName() string { return "pl061" }

func (p *PL061) Realize() error { return nil }

// MapRegion implements chipset.MMIOMapper.
func (p *PL061) MapRegion(index int, region hv.MemoryRegion) error {
	if index != 0 {
		return fmt.Errorf("pl061: no MMIO region %d", index)
	}
	p.region = region
	return nil
}

// InputLine implements chipset.LineTarget.
func (p *PL061) InputLine(index int) (chipset.Line, error) {
	if index < 0 || index >= NumLines {
		return nil, fmt.Errorf("pl061: no input line %d", index)
	}
	return p.in.Line(index), nil
}

// ConnectOutputLine implements chipset.LineSource for the GPIO outputs.
func (p *PL061) ConnectOutputLine(index int, target chipset.Line) error {
	if index < 0 || index >= NumLines {
		return fmt.Errorf("pl061: no output line %d", index)
	}
	return p.out.Connect(index, target)
}

// ConnectInterrupt wires the combined interrupt output.
func (p *PL061) ConnectInterrupt(target chipset.Line) error {
	return p.irq.Connect(0, target)
}

// SetOutput drives one of the GPIO output lines.
func (p *PL061) SetOutput(index int, high bool) {
	p.out.Set(index, high)
}

// OutputConnected reports whether a GPIO output line has a target.
func (p *PL061) OutputConnected(index int) bool {
	return p.out.Connected(index)
}

func init() {
	chipset.Register("pl061", func() chipset.Device { return New() })
}
