package fdt

import (
	"errors"
	"testing"
)

func TestRegEntrySingleCell(t *testing.T) {
	tree := testTree(t, Node{
		Properties: map[string]Property{
			"#address-cells": U32(1),
			"#size-cells":    U32(1),
		},
		Children: []Node{
			{Name: "dev@1000", Properties: map[string]Property{
				"reg": U32(0x1000, 0x100, 0x2000, 0x200),
			}},
		},
	})
	dev := tree.Children(tree.Root())[0]

	count, err := tree.RegCount(dev)
	if err != nil || count != 2 {
		t.Fatalf("RegCount = %d, %v; want 2", count, err)
	}

	addr, size, err := tree.RegEntry(dev, 1)
	if err != nil {
		t.Fatalf("RegEntry(1): %v", err)
	}
	if addr != 0x2000 || size != 0x200 {
		t.Errorf("RegEntry(1) = %#x/%#x, want 0x2000/0x200", addr, size)
	}

	if _, _, err := tree.RegEntry(dev, 2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RegEntry(2) err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestRegEntryDefaultCells(t *testing.T) {
	// Without #address-cells/#size-cells the defaults are 2 and 1, making
	// the address span two cells.
	tree := testTree(t, Node{
		Children: []Node{
			{Name: "dev", Properties: map[string]Property{
				"reg": U32(0x1, 0x80000000, 0x1000),
			}},
		},
	})
	dev := tree.Children(tree.Root())[0]

	addr, size, err := tree.RegEntry(dev, 0)
	if err != nil {
		t.Fatalf("RegEntry: %v", err)
	}
	if addr != 0x1_8000_0000 || size != 0x1000 {
		t.Errorf("RegEntry = %#x/%#x, want 0x180000000/0x1000", addr, size)
	}
}

func TestRegEntryBadStride(t *testing.T) {
	tree := testTree(t, Node{
		Properties: map[string]Property{
			"#address-cells": U32(1),
			"#size-cells":    U32(1),
		},
		Children: []Node{
			{Name: "dev", Properties: map[string]Property{
				"reg": U32(0x1000, 0x100, 0x2000),
			}},
		},
	})
	dev := tree.Children(tree.Root())[0]

	if _, err := tree.RegCount(dev); !errors.Is(err, ErrBadValue) {
		t.Errorf("RegCount err = %v, want ErrBadValue", err)
	}
	if _, _, err := tree.RegEntry(dev, 0); !errors.Is(err, ErrBadValue) {
		t.Errorf("RegEntry err = %v, want ErrBadValue", err)
	}
}

func TestRegEntryRejectsWideCells(t *testing.T) {
	tree := testTree(t, Node{
		Properties: map[string]Property{
			"#address-cells": U32(3),
			"#size-cells":    U32(1),
		},
		Children: []Node{
			{Name: "dev", Properties: map[string]Property{
				"reg": U32(0, 0, 0x1000, 0x100),
			}},
		},
	})
	dev := tree.Children(tree.Root())[0]

	if _, _, err := tree.RegEntry(dev, 0); !errors.Is(err, ErrBadCellCount) {
		t.Errorf("RegEntry err = %v, want ErrBadCellCount", err)
	}
}

func TestRegOnRootFails(t *testing.T) {
	tree := testTree(t, Node{
		Properties: map[string]Property{
			"reg": U32(0x1000, 0x100),
		},
	})

	if _, _, err := tree.RegEntry(tree.Root(), 0); !errors.Is(err, ErrBadCellCount) {
		t.Errorf("RegEntry(root) err = %v, want ErrBadCellCount", err)
	}
}

func TestPropertyLong(t *testing.T) {
	tree := testTree(t, Node{
		Children: []Node{
			{Name: "clk", Properties: map[string]Property{
				"clock-frequency": U32(24000000),
				"timebase":        U32(0x1, 0x0),
				"wide":            U32(1, 2, 3),
			}},
		},
	})
	clk := tree.Children(tree.Root())[0]

	hz, err := tree.PropertyLong(clk, "clock-frequency")
	if err != nil || hz != 24000000 {
		t.Errorf("PropertyLong(1 cell) = %d, %v", hz, err)
	}

	tb, err := tree.PropertyLong(clk, "timebase")
	if err != nil || tb != 0x1_0000_0000 {
		t.Errorf("PropertyLong(2 cells) = %#x, %v", tb, err)
	}

	if _, err := tree.PropertyLong(clk, "wide"); !errors.Is(err, ErrBadCellCount) {
		t.Errorf("PropertyLong(3 cells) err = %v, want ErrBadCellCount", err)
	}
	if _, err := tree.PropertyLong(clk, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PropertyLong(missing) err = %v, want ErrNotFound", err)
	}
}

func TestRangesEntry(t *testing.T) {
	tree := testTree(t, Node{
		Properties: map[string]Property{
			"#address-cells": U32(1),
			"#size-cells":    U32(1),
		},
		Children: []Node{
			{
				Name: "soc",
				Properties: map[string]Property{
					"#address-cells": U32(1),
					"#size-cells":    U32(1),
					"ranges":         U32(0x0, 0x10000000, 0x100000),
				},
			},
		},
	})
	soc := tree.Children(tree.Root())[0]

	child, parent, size, err := tree.RangesEntry(soc, 0)
	if err != nil {
		t.Fatalf("RangesEntry: %v", err)
	}
	if child != 0 || parent != 0x10000000 || size != 0x100000 {
		t.Errorf("RangesEntry = %#x/%#x/%#x", child, parent, size)
	}

	if _, _, _, err := tree.RangesEntry(soc, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RangesEntry(1) err = %v, want ErrIndexOutOfRange", err)
	}
}
