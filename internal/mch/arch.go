package mch

import (
	"sync"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// CPULinesFunc returns the physical interrupt inputs a CPU of some
// architecture exposes to the platform interrupt controller, in wiring
// order.
type CPULinesFunc func(cpu *chipset.CPU) []chipset.Line

var (
	archLinesMu sync.Mutex
	archLines   = map[hv.CpuArchitecture]CPULinesFunc{}
)

// RegisterArchCPULines overrides the interrupt-line layout for an
// architecture. Intended for platforms whose CPUs expose a nonstandard
// line set.
func RegisterArchCPULines(arch hv.CpuArchitecture, fn CPULinesFunc) {
	archLinesMu.Lock()
	defer archLinesMu.Unlock()
	archLines[arch] = fn
}

func cpuLinesForArch(arch hv.CpuArchitecture) CPULinesFunc {
	archLinesMu.Lock()
	defer archLinesMu.Unlock()
	return archLines[arch]
}

func init() {
	// ARM cores take IRQ and FIQ.
	RegisterArchCPULines(hv.ArchitectureARM64, func(cpu *chipset.CPU) []chipset.Line {
		return cpuInputs(cpu, 2)
	})
	// MIPS cores take 8 hardware interrupt lines.
	RegisterArchCPULines(hv.ArchitectureMIPS, func(cpu *chipset.CPU) []chipset.Line {
		return cpuInputs(cpu, 8)
	})
}

func cpuInputs(cpu *chipset.CPU, count int) []chipset.Line {
	lines := make([]chipset.Line, 0, count)
	for i := 0; i < count; i++ {
		line, err := cpu.InputLine(i)
		if err != nil {
			break
		}
		lines = append(lines, line)
	}
	return lines
}
