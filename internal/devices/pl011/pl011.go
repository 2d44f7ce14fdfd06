// Package pl011 implements the ARM PrimeCell PL011 UART.
package pl011

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/clock"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

const (
	regDR   = 0x00
	regRSR  = 0x04
	regFR   = 0x18
	regILPR = 0x20
	regIBRD = 0x24
	regFBRD = 0x28
	regLCRH = 0x2c
	regCR   = 0x30
	regIFLS = 0x34
	regIMSC = 0x38
	regRIS  = 0x3c
	regMIS  = 0x40
	regICR  = 0x44
	regDMAC = 0x48

	flagTxEmpty = 1 << 7
	flagRxEmpty = 1 << 4

	irqTx = 1 << 5
)

// PL011 is a memory-mapped UART with a single interrupt output (line 0) and
// a "uartclk" reference clock input.
type PL011 struct {
	out io.Writer
	irq chipset.OutputLines

	mu     sync.Mutex
	region hv.MemoryRegion
	uartclk *clock.Clock

	cr    uint32
	lcrh  uint32
	ibrd  uint32
	fbrd  uint32
	ifls  uint32
	imsc  uint32
	ris   uint32
	dmacr uint32

	outByte [1]byte
}

func New() *PL011 {
	return &PL011{out: io.Discard}
}

func (p *PL011) DeviceName() string { return "pl011" }

func (p *PL011) Realize() error {
	if p.out == nil {
		p.out = io.Discard
	}
	return nil
}

// SetOutput redirects transmitted bytes; the default output discards them.
func (p *PL011) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

// MapRegion implements chipset.MMIOMapper.
func (p *PL011) MapRegion(index int, region hv.MemoryRegion) error {
	if index != 0 {
		return fmt.Errorf("pl011: no MMIO region %d", index)
	}
	p.mu.Lock()
	p.region = region
	p.mu.Unlock()
	return nil
}

// ConnectOutputLine implements chipset.LineSource; output 0 is UARTINTR.
func (p *PL011) ConnectOutputLine(index int, target chipset.Line) error {
	if index != 0 {
		return fmt.Errorf("pl011: no output line %d", index)
	}
	return p.irq.Connect(index, target)
}

// ConnectClockInput implements chipset.ClockConsumer.
func (p *PL011) ConnectClockInput(name string, clk *clock.Clock) error {
	switch name {
	case "uartclk", "apb_pclk":
		p.mu.Lock()
		p.uartclk = clk
		p.mu.Unlock()
		return nil
	}
	return fmt.Errorf("pl011: unknown clock input %q", name)
}

// Clock returns the connected reference clock, or nil.
func (p *PL011) Clock() *clock.Clock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uartclk
}

// ReadMMIO services a register read at a machine physical address.
func (p *PL011) ReadMMIO(addr uint64, data []byte) error {
	if len(data) == 0 || len(data) > 4 {
		return fmt.Errorf("pl011: unsupported read size %d", len(data))
	}
	p.mu.Lock()
	value := p.readRegister(addr - p.region.Address)
	p.mu.Unlock()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	copy(data, buf[:len(data)])
	return nil
}

// WriteMMIO services a register write at a machine physical address.
func (p *PL011) WriteMMIO(addr uint64, data []byte) error {
	if len(data) == 0 || len(data) > 4 {
		return fmt.Errorf("pl011: unsupported write size %d", len(data))
	}
	var value uint32
	for i := 0; i < len(data); i++ {
		value |= uint32(data[i]) << (8 * i)
	}

	p.mu.Lock()
	err := p.writeRegister(addr-p.region.Address, value)
	irqLevel := p.ris&p.imsc != 0
	p.mu.Unlock()

	p.irq.Set(0, irqLevel)
	return err
}

func (p *PL011) readRegister(offset uint64) uint32 {
	switch offset {
	case regDR:
		return 0
	case regFR:
		// Transmit FIFO always empty, receive FIFO always empty.
		return flagTxEmpty | flagRxEmpty
	case regLCRH:
		return p.lcrh
	case regCR:
		return p.cr
	case regIBRD:
		return p.ibrd
	case regFBRD:
		return p.fbrd
	case regIFLS:
		return p.ifls
	case regIMSC:
		return p.imsc
	case regRIS:
		return p.ris
	case regMIS:
		return p.ris & p.imsc
	case regDMAC:
		return p.dmacr
	default:
		return 0
	}
}

func (p *PL011) writeRegister(offset uint64, value uint32) error {
	switch offset {
	case regDR:
		p.outByte[0] = byte(value)
		if _, err := p.out.Write(p.outByte[:]); err != nil {
			return fmt.Errorf("pl011: write output: %w", err)
		}
		p.ris |= irqTx
	case regRSR:
		// write clears receive status
	case regILPR:
	case regIBRD:
		p.ibrd = value
	case regFBRD:
		p.fbrd = value
	case regLCRH:
		p.lcrh = value
	case regCR:
		p.cr = value
	case regIFLS:
		p.ifls = value
	case regIMSC:
		p.imsc = value
	case regICR:
		p.ris &^= value
	case regDMAC:
		p.dmacr = value
	}
	return nil
}

func init() {
	chipset.Register("pl011", func() chipset.Device { return New() })
}
