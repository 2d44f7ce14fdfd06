package hv

import (
	"fmt"
	"sort"
	"sync"
)

// AddressSpace tracks the physical address layout of a machine: the RAM
// region plus every fixed MMIO region registered by device construction.
type AddressSpace struct {
	mu sync.Mutex

	arch    CpuArchitecture
	ram     MemoryRegion
	regions []MemoryRegion
}

// NewAddressSpace creates an address space with the given RAM placement.
func NewAddressSpace(arch CpuArchitecture, ramBase, ramSize uint64) *AddressSpace {
	return &AddressSpace{
		arch: arch,
		ram:  MemoryRegion{Name: "ram", Address: ramBase, Size: ramSize},
	}
}

// RegisterFixed registers a pre-determined MMIO region. Regions may not
// overlap RAM or each other.
func (a *AddressSpace) RegisterFixed(name string, base, size uint64) (MemoryRegion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		return MemoryRegion{}, fmt.Errorf("address_space: zero-size fixed region %s", name)
	}
	if base+size < base {
		return MemoryRegion{}, fmt.Errorf("address_space: fixed region %s wraps at 0x%x", name, base)
	}

	region := MemoryRegion{Name: name, Address: base, Size: size}
	if regionsOverlap(region, a.ram) {
		return MemoryRegion{}, fmt.Errorf(
			"address_space: fixed region %s [0x%x-0x%x) overlaps RAM [0x%x-0x%x)",
			name, base, region.End(), a.ram.Address, a.ram.End())
	}
	for _, existing := range a.regions {
		if regionsOverlap(region, existing) {
			return MemoryRegion{}, fmt.Errorf(
				"address_space: fixed region %s [0x%x-0x%x) overlaps %s [0x%x-0x%x)",
				name, base, region.End(), existing.Name, existing.Address, existing.End())
		}
	}

	a.regions = append(a.regions, region)
	return region, nil
}

// FixedRegions returns all registered MMIO regions sorted by base address.
func (a *AddressSpace) FixedRegions() []MemoryRegion {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]MemoryRegion, len(a.regions))
	copy(out, a.regions)
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// RAM returns the RAM region.
func (a *AddressSpace) RAM() MemoryRegion { return a.ram }

// Architecture returns the CPU architecture the layout was built for.
func (a *AddressSpace) Architecture() CpuArchitecture { return a.arch }
