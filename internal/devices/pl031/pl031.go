// Package pl031 implements the ARM PrimeCell PL031 Real Time Clock.
package pl031

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/clock"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

const (
	regDR   = 0x00 // Data Register (RO) - current counter value
	regMR   = 0x04 // Match Register (RW)
	regLR   = 0x08 // Load Register (RW)
	regCR   = 0x0C // Control Register (RW)
	regIMSC = 0x10 // Interrupt Mask Set/Clear (RW)
	regRIS  = 0x14 // Raw Interrupt Status (RO)
	regMIS  = 0x18 // Masked Interrupt Status (RO)
	regICR  = 0x1C // Interrupt Clear Register (WO)

	crEnable = 1 << 0
)

// PL031 is a memory-mapped RTC with one interrupt output and an "apb_pclk"
// bus clock input.
type PL031 struct {
	irq chipset.OutputLines

	mu     sync.Mutex
	region hv.MemoryRegion
	pclk   *clock.Clock

	loadTime time.Time
	lr       uint32
	mr       uint32
	cr       uint32
	imsc     uint32
	ris      uint32
}

func New() *PL031 {
	return &PL031{loadTime: time.Now(), cr: crEnable}
}

func (p *PL031) DeviceName() string { return "pl031" }

func (p *PL031) Realize() error { return nil }

// MapRegion implements chipset.MMIOMapper.
func (p *PL031) MapRegion(index int, region hv.MemoryRegion) error {
	if index != 0 {
		return fmt.Errorf("pl031: no MMIO region %d", index)
	}
	p.mu.Lock()
	p.region = region
	p.mu.Unlock()
	return nil
}

// ConnectOutputLine implements chipset.LineSource; output 0 is RTCINTR.
func (p *PL031) ConnectOutputLine(index int, target chipset.Line) error {
	if index != 0 {
		return fmt.Errorf("pl031: no output line %d", index)
	}
	return p.irq.Connect(index, target)
}

// ConnectClockInput implements chipset.ClockConsumer.
func (p *PL031) ConnectClockInput(name string, clk *clock.Clock) error {
	if name != "apb_pclk" && name != "rtc" {
		return fmt.Errorf("pl031: unknown clock input %q", name)
	}
	p.mu.Lock()
	p.pclk = clk
	p.mu.Unlock()
	return nil
}

func (p *PL031) counter() uint32 {
	return p.lr + uint32(time.Since(p.loadTime)/time.Second)
}

// ReadMMIO services a register read at a machine physical address.
func (p *PL031) ReadMMIO(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("pl031: unsupported read size %d", len(data))
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var value uint32
	switch addr - p.region.Address {
	case regDR:
		value = p.counter()
	case regMR:
		value = p.mr
	case regLR:
		value = p.lr
	case regCR:
		value = p.cr
	case regIMSC:
		value = p.imsc
	case regRIS:
		value = p.ris
	case regMIS:
		value = p.ris & p.imsc
	}
	binary.LittleEndian.PutUint32(data, value)
	return nil
}

// WriteMMIO services a register write at a machine physical address.
func (p *PL031) WriteMMIO(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("pl031: unsupported write size %d", len(data))
	}
	value := binary.LittleEndian.Uint32(data)

	p.mu.Lock()
	switch addr - p.region.Address {
	case regMR:
		p.mr = value
	case regLR:
		p.lr = value
		p.loadTime = time.Now()
	case regCR:
		p.cr = value
	case regIMSC:
		p.imsc = value
	case regICR:
		p.ris &^= value
	}
	irqLevel := p.ris&p.imsc != 0
	p.mu.Unlock()

	p.irq.Set(0, irqLevel)
	return nil
}

func init() {
	chipset.Register("pl031", func() chipset.Device { return New() })
}
