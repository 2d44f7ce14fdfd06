// Package unimplemented provides a placeholder device covering the register
// regions of hardware the machine cannot model, so that stray guest accesses
// stay contained instead of corrupting unrelated memory.
package unimplemented

import (
	"log/slog"

	"github.com/tinyrange/fdtmachine/internal/hv"
)

// Device reads as zero and ignores writes over its whole region.
type Device struct {
	name   string
	region hv.MemoryRegion
}

// New creates a placeholder sized to the union of a node's declared register
// regions.
func New(name string, region hv.MemoryRegion) *Device {
	return &Device{name: name, region: region}
}

func (d *Device) DeviceName() string { return d.name }

func (d *Device) Realize() error { return nil }

// Region returns the covered address range.
func (d *Device) Region() hv.MemoryRegion { return d.region }

// ReadMMIO reads zeroes.
func (d *Device) ReadMMIO(addr uint64, data []byte) error {
	slog.Debug("unimplemented device read", "device", d.name, "addr", addr, "size", len(data))
	for i := range data {
		data[i] = 0
	}
	return nil
}

// WriteMMIO discards the write.
func (d *Device) WriteMMIO(addr uint64, data []byte) error {
	slog.Debug("unimplemented device write", "device", d.name, "addr", addr, "size", len(data))
	return nil
}
