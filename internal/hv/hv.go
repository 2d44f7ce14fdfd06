// Package hv holds the machine-level primitives shared by the topology
// builder and the device model: architectures, memory regions, and the
// physical address space.
package hv

type CpuArchitecture string

const (
	ArchitectureInvalid CpuArchitecture = "invalid"
	ArchitectureX86_64  CpuArchitecture = "x86_64"
	ArchitectureARM64   CpuArchitecture = "arm64"
	ArchitectureMIPS    CpuArchitecture = "mips"
)

// MemoryRegion describes a contiguous physical address range.
type MemoryRegion struct {
	Name    string `yaml:"name"`
	Address uint64 `yaml:"address"`
	Size    uint64 `yaml:"size"`
}

// End returns the first address after the region.
func (r MemoryRegion) End() uint64 { return r.Address + r.Size }

// Contains reports whether addr falls inside the region.
func (r MemoryRegion) Contains(addr uint64) bool {
	return addr >= r.Address && addr < r.End()
}

func regionsOverlap(a, b MemoryRegion) bool {
	return a.Address < b.End() && b.Address < a.End()
}
