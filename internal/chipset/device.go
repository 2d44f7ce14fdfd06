// Package chipset defines the device model the machine builder instantiates
// into: devices created by registry name, indexed input/output lines for
// interrupt and GPIO wiring, and named clock inputs.
package chipset

import (
	"github.com/tinyrange/fdtmachine/internal/clock"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// Device is the minimal interface every modeled device implements. A device
// is constructed unrealized; Realize finalizes it after all pre-realize
// fixups have been applied.
type Device interface {
	DeviceName() string
	Realize() error
}

// MMIOMapper is implemented by devices that occupy memory-mapped register
// regions. MapRegion informs the device of the physical placement of its
// index'th region.
type MMIOMapper interface {
	MapRegion(index int, region hv.MemoryRegion) error
}

// LineTarget exposes allocatable input lines (interrupt or GPIO sinks).
// Input lines are identified by index and owned by the exposing device.
type LineTarget interface {
	InputLine(index int) (Line, error)
}

// LineSource drives indexed output lines into other devices' input lines.
type LineSource interface {
	ConnectOutputLine(index int, target Line) error
}

// ClockConsumer accepts named input clocks resolved from the device tree.
type ClockConsumer interface {
	ConnectClockInput(name string, clk *clock.Clock) error
}

// DMAMaster is implemented by DMA-capable devices whose downstream memory
// view must be bound to the system address space before realize.
type DMAMaster interface {
	SetDownstream(space *hv.AddressSpace)
}

// I2CBus is implemented by controllers exposing an I2C child bus.
type I2CBus interface {
	AttachSlave(addr uint8, dev Device) error
}

// I2CSlave is implemented by devices that sit on an I2C bus.
type I2CSlave interface {
	SetBusAddress(addr uint8)
}
