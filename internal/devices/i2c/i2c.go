// Package i2c implements a minimal I2C bus controller and slave device.
package i2c

import (
	"fmt"
	"sync"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// Controller is a memory-mapped I2C bus controller (modeled on the ARM
// Versatile serial bus interface). Slaves attach at 7-bit addresses.
type Controller struct {
	mu     sync.Mutex
	region hv.MemoryRegion
	slaves map[uint8]chipset.Device
}

func NewController() *Controller {
	return &Controller{slaves: make(map[uint8]chipset.Device)}
}

func (c *Controller) DeviceName() string { return "versatile_i2c" }

func (c *Controller) Realize() error { return nil }

// MapRegion implements chipset.MMIOMapper.
func (c *Controller) MapRegion(index int, region hv.MemoryRegion) error {
	if index != 0 {
		return fmt.Errorf("versatile_i2c: no MMIO region %d", index)
	}
	c.mu.Lock()
	c.region = region
	c.mu.Unlock()
	return nil
}

// AttachSlave implements chipset.I2CBus.
func (c *Controller) AttachSlave(addr uint8, dev chipset.Device) error {
	if addr > 0x7f {
		return fmt.Errorf("versatile_i2c: address 0x%x out of 7-bit range", addr)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.slaves[addr]; ok {
		return fmt.Errorf("versatile_i2c: address 0x%x already in use", addr)
	}
	c.slaves[addr] = dev
	return nil
}

// SlaveAt returns the device attached at the given address, or nil.
func (c *Controller) SlaveAt(addr uint8) chipset.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slaves[addr]
}

// EEPROM is a trivial I2C slave storing a fixed-size byte array.
type EEPROM struct {
	addr uint8
	data [256]byte
}

func NewEEPROM() *EEPROM { return &EEPROM{} }

func (e *EEPROM) DeviceName() string { return "at24c-eeprom" }

func (e *EEPROM) Realize() error { return nil }

// SetBusAddress implements chipset.I2CSlave.
func (e *EEPROM) SetBusAddress(addr uint8) { e.addr = addr }

// BusAddress returns the assigned bus address.
func (e *EEPROM) BusAddress() uint8 { return e.addr }

func init() {
	chipset.Register("versatile_i2c", func() chipset.Device { return NewController() })
	chipset.Register("at24c-eeprom", func() chipset.Device { return NewEEPROM() })
}
