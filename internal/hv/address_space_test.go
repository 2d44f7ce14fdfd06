package hv

import "testing"

func TestRegisterFixed(t *testing.T) {
	space := NewAddressSpace(ArchitectureARM64, 0x40000000, 0x10000000)

	region, err := space.RegisterFixed("uart", 0x10000000, 0x1000)
	if err != nil {
		t.Fatalf("RegisterFixed: %v", err)
	}
	if region.Address != 0x10000000 || region.Size != 0x1000 {
		t.Errorf("region = %+v", region)
	}

	if _, err := space.RegisterFixed("zero", 0x20000000, 0); err == nil {
		t.Error("zero-size region accepted")
	}
	if _, err := space.RegisterFixed("wrap", ^uint64(0)-0x10, 0x100); err == nil {
		t.Error("wrapping region accepted")
	}
}

func TestRegisterFixedOverlap(t *testing.T) {
	space := NewAddressSpace(ArchitectureARM64, 0x40000000, 0x10000000)

	if _, err := space.RegisterFixed("in-ram", 0x48000000, 0x1000); err == nil {
		t.Error("region overlapping RAM accepted")
	}

	if _, err := space.RegisterFixed("a", 0x10000000, 0x1000); err != nil {
		t.Fatalf("RegisterFixed(a): %v", err)
	}
	if _, err := space.RegisterFixed("b", 0x10000800, 0x1000); err == nil {
		t.Error("overlapping MMIO region accepted")
	}
	if _, err := space.RegisterFixed("c", 0x10001000, 0x1000); err != nil {
		t.Errorf("adjacent region rejected: %v", err)
	}
}

func TestFixedRegionsSorted(t *testing.T) {
	space := NewAddressSpace(ArchitectureARM64, 0x80000000, 0x1000000)

	for _, base := range []uint64{0x30000000, 0x10000000, 0x20000000} {
		if _, err := space.RegisterFixed("dev", base, 0x1000); err != nil {
			t.Fatalf("RegisterFixed(0x%x): %v", base, err)
		}
	}

	regions := space.FixedRegions()
	if len(regions) != 3 {
		t.Fatalf("got %d regions", len(regions))
	}
	for i := 1; i < len(regions); i++ {
		if regions[i-1].Address >= regions[i].Address {
			t.Errorf("regions not sorted: %#x before %#x",
				regions[i-1].Address, regions[i].Address)
		}
	}
}

func TestMemoryRegionContains(t *testing.T) {
	region := MemoryRegion{Address: 0x1000, Size: 0x100}
	if !region.Contains(0x1000) || !region.Contains(0x10ff) {
		t.Error("Contains missed in-range address")
	}
	if region.Contains(0xfff) || region.Contains(0x1100) {
		t.Error("Contains accepted out-of-range address")
	}
	if region.End() != 0x1100 {
		t.Errorf("End = %#x", region.End())
	}
}
