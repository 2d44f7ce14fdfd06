package fdt

import (
	"errors"
	"fmt"
)

var (
	// ErrBadCellCount reports an inherited #address-cells/#size-cells count
	// outside the supported 0..2 range.
	ErrBadCellCount = errors.New("fdt: unsupported cell count")
	// ErrBadValue reports a property whose length is inconsistent with the
	// expected stride or cell width.
	ErrBadValue = errors.New("fdt: malformed property value")
	// ErrIndexOutOfRange reports an entry index past the end of a property.
	ErrIndexOutOfRange = errors.New("fdt: index out of range")
)

const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
	maxCellsPerField    = 2
)

// AddressCells returns the #address-cells value declared on a node, applying
// the device-tree default of 2 when absent.
func (t *Tree) AddressCells(ref int) (int, error) {
	return t.cellCount(ref, "#address-cells", defaultAddressCells)
}

// SizeCells returns the #size-cells value declared on a node, applying the
// device-tree default of 1 when absent.
func (t *Tree) SizeCells(ref int) (int, error) {
	return t.cellCount(ref, "#size-cells", defaultSizeCells)
}

func (t *Tree) cellCount(ref int, name string, def int) (int, error) {
	value, err := t.PropertyCell(ref, name)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	if value > maxCellsPerField {
		return 0, fmt.Errorf("%w: %s = %d on node 0x%x", ErrBadCellCount, name, value, ref)
	}
	return int(value), nil
}

// readCells composes a big integer from n consecutive big-endian cells.
func readCells(cells []uint32, n int) (uint64, error) {
	if n > maxCellsPerField {
		return 0, fmt.Errorf("%w: %d cells", ErrBadCellCount, n)
	}
	if n > len(cells) {
		return 0, fmt.Errorf("%w: want %d cells, have %d", ErrBadValue, n, len(cells))
	}
	var value uint64
	for i := 0; i < n; i++ {
		value <<= 32
		value |= uint64(cells[i])
	}
	return value, nil
}

// PropertyLong returns a 1- or 2-cell integer property as a uint64.
func (t *Tree) PropertyLong(ref int, name string) (uint64, error) {
	cells, err := t.PropertyCells(ref, name)
	if err != nil {
		return 0, err
	}
	return readCells(cells, len(cells))
}

// regLayout resolves the reg stride of a node from its parent's cell counts.
func (t *Tree) regLayout(ref int) (addrCells, sizeCells int, err error) {
	parent, err := t.Parent(ref)
	if err != nil {
		// A node without a parent does not have any number of cells.
		return 0, 0, fmt.Errorf("%w: node 0x%x has no parent", ErrBadCellCount, ref)
	}
	addrCells, err = t.AddressCells(parent)
	if err != nil {
		return 0, 0, err
	}
	sizeCells, err = t.SizeCells(parent)
	if err != nil {
		return 0, 0, err
	}
	if addrCells+sizeCells == 0 {
		return 0, 0, fmt.Errorf("%w: zero reg stride for node 0x%x", ErrBadCellCount, ref)
	}
	return addrCells, sizeCells, nil
}

// RegCount returns the number of (address, size) entries in a node's reg
// property.
func (t *Tree) RegCount(ref int) (int, error) {
	cells, err := t.PropertyCells(ref, "reg")
	if err != nil {
		return 0, err
	}
	ac, sc, err := t.regLayout(ref)
	if err != nil {
		return 0, err
	}
	stride := ac + sc
	if len(cells)%stride != 0 {
		return 0, fmt.Errorf("%w: reg length %d cells, stride %d", ErrBadValue, len(cells), stride)
	}
	return len(cells) / stride, nil
}

// RegEntry reads the idx'th (address, size) pair of a node's reg property.
// The per-entry stride is the sum of the parent's #address-cells and
// #size-cells, each limited to 2 cells.
func (t *Tree) RegEntry(ref int, idx int) (addr, size uint64, err error) {
	cells, err := t.PropertyCells(ref, "reg")
	if err != nil {
		return 0, 0, err
	}
	ac, sc, err := t.regLayout(ref)
	if err != nil {
		return 0, 0, err
	}
	stride := ac + sc
	if len(cells)%stride != 0 {
		return 0, 0, fmt.Errorf("%w: reg length %d cells, stride %d", ErrBadValue, len(cells), stride)
	}
	if idx < 0 || idx >= len(cells)/stride {
		return 0, 0, fmt.Errorf("%w: reg entry %d of %d", ErrIndexOutOfRange, idx, len(cells)/stride)
	}
	addr, err = readCells(cells[stride*idx:], ac)
	if err != nil {
		return 0, 0, err
	}
	size, err = readCells(cells[stride*idx+ac:], sc)
	if err != nil {
		return 0, 0, err
	}
	return addr, size, nil
}

// RangesEntry reads the idx'th (child-address, parent-address, size) triple
// of a node's ranges property. The child address width comes from the node's
// own #address-cells, the parent address width from the parent's, and the
// size width from the node's own #size-cells.
func (t *Tree) RangesEntry(ref int, idx int) (childAddr, parentAddr, size uint64, err error) {
	cells, err := t.PropertyCells(ref, "ranges")
	if err != nil {
		return 0, 0, 0, err
	}
	childAC, err := t.AddressCells(ref)
	if err != nil {
		return 0, 0, 0, err
	}
	childSC, err := t.SizeCells(ref)
	if err != nil {
		return 0, 0, 0, err
	}
	parent, err := t.Parent(ref)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: ranges on node 0x%x without parent", ErrBadCellCount, ref)
	}
	parentAC, err := t.AddressCells(parent)
	if err != nil {
		return 0, 0, 0, err
	}
	stride := childAC + parentAC + childSC
	if stride == 0 || len(cells)%stride != 0 {
		return 0, 0, 0, fmt.Errorf("%w: ranges length %d cells, stride %d", ErrBadValue, len(cells), stride)
	}
	if idx < 0 || idx >= len(cells)/stride {
		return 0, 0, 0, fmt.Errorf("%w: ranges entry %d of %d", ErrIndexOutOfRange, idx, len(cells)/stride)
	}
	row := cells[stride*idx:]
	if childAddr, err = readCells(row, childAC); err != nil {
		return 0, 0, 0, err
	}
	if parentAddr, err = readCells(row[childAC:], parentAC); err != nil {
		return 0, 0, 0, err
	}
	if size, err = readCells(row[childAC+parentAC:], childSC); err != nil {
		return 0, 0, 0, err
	}
	return childAddr, parentAddr, size, nil
}
