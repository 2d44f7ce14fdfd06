package mch

import (
	"fmt"

	"github.com/tinyrange/fdtmachine/internal/chipset"
)

// NodeEntry is the durable record associating one device-tree node with the
// runtime entity (if any) it produced, plus the line handles allocated for
// it by the interrupt and GPIO passes.
type NodeEntry struct {
	Node  int
	Dev   chipset.Device
	IRQs  []chipset.Line
	GPIOs []chipset.Line
}

// deviceMap is the node-to-entity mapping table. At most one entry exists
// per node reference; lookups and inserts are O(1).
type deviceMap struct {
	entries map[int]*NodeEntry
	order   []int
}

func newDeviceMap() *deviceMap {
	return &deviceMap{entries: make(map[int]*NodeEntry)}
}

// record inserts the entry for a node. A nil dev records that the node was
// visited but produced no entity. Duplicate inserts fail.
func (m *deviceMap) record(node int, dev chipset.Device) (*NodeEntry, error) {
	if _, exists := m.entries[node]; exists {
		return nil, fmt.Errorf("%w: 0x%x", ErrAlreadyMapped, node)
	}
	entry := &NodeEntry{Node: node, Dev: dev}
	m.entries[node] = entry
	m.order = append(m.order, node)
	return entry, nil
}

// lookup returns the entry for a node, if one was ever recorded.
func (m *deviceMap) lookup(node int) (*NodeEntry, bool) {
	entry, ok := m.entries[node]
	return entry, ok
}

// nodes returns every recorded node reference in insertion order.
func (m *deviceMap) nodes() []int {
	out := make([]int, len(m.order))
	copy(out, m.order)
	return out
}

func (m *deviceMap) len() int { return len(m.entries) }
