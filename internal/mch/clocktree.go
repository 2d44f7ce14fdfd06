package mch

import (
	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/clock"
	"github.com/tinyrange/fdtmachine/internal/fdt"
)

// buildClockTree runs the two clock passes. Pass one creates one Clock per
// provider node and pins fixed rates. Pass two links derived clocks to
// their parents and hands clock inputs to consuming devices. Splitting the
// passes means link order never depends on document order.
func (b *buildContext) buildClockTree() {
	b.createClocks()
	b.linkClocks()
}

func (b *buildContext) createClocks() {
	for _, node := range b.tree.NodesWithProperty("#clock-cells") {
		name := b.clockName(node, node, 0)
		clk := clock.New(name)

		if hz, err := b.tree.PropertyLong(node, "clock-frequency"); err == nil {
			clk.SetHz(hz)
		}

		b.clocks[node] = clk
		b.clockOrder = append(b.clockOrder, node)
		b.log.Debug("created clock", "node", b.nodeName(node),
			"name", name, "hz", clk.Hz())
	}
}

func (b *buildContext) linkClocks() {
	for _, node := range b.tree.NodesWithProperty("clocks") {
		if _, isClock := b.clocks[node]; isClock {
			b.linkDerivedClock(node)
			continue
		}
		b.connectDeviceClocks(node)
	}
}

// linkDerivedClock attaches a clock node to its parent with the node's
// mult/div factors. Derived clocks reference exactly one parent; extra
// entries in the clocks property are ignored.
func (b *buildContext) linkDerivedClock(node int) {
	clk := b.clocks[node]

	parent, _, ok := b.clockReference(node, 0)
	if !ok {
		b.log.Warn("derived clock has unresolvable parent", "node", b.nodeName(node))
		return
	}
	src, ok := b.clocks[parent]
	if !ok {
		b.log.Warn("derived clock parent is not a clock", "node", b.nodeName(node))
		return
	}

	mult := b.propLongDefault(node, "clock-mult", 1)
	div := b.propLongDefault(node, "clock-div", 1)
	if err := clk.SetSource(src, mult, div); err != nil {
		b.log.Warn("clock link failed", "node", b.nodeName(node), "err", err)
		return
	}
	b.log.Debug("linked derived clock", "node", b.nodeName(node),
		"parent", src.Name(), "mult", mult, "div", div, "hz", clk.Hz())
}

// connectDeviceClocks hands each clock named in a device node's clocks
// property to the device, keyed by the matching clock-names entry.
func (b *buildContext) connectDeviceClocks(node int) {
	entry, ok := b.mapping.lookup(node)
	if !ok || entry.Dev == nil {
		return
	}
	consumer, ok := entry.Dev.(chipset.ClockConsumer)
	if !ok {
		return
	}

	for idx := 0; ; idx++ {
		parent, _, ok := b.clockReference(node, idx)
		if !ok {
			break
		}
		clk, ok := b.clocks[parent]
		if !ok {
			b.log.Warn("clock reference to non-clock node",
				"node", b.nodeName(node), "index", idx)
			continue
		}

		name := b.clockName(node, parent, idx)
		if err := consumer.ConnectClockInput(name, clk); err != nil {
			b.log.Warn("device rejected clock input", "node", b.nodeName(node),
				"clock", name, "err", err)
			continue
		}
		b.log.Debug("connected clock", "node", b.nodeName(node),
			"clock", name, "hz", clk.Hz())
	}
}

// clockReference resolves entry idx of a node's clocks property to the
// provider node. Entries are variable width: one phandle cell plus the
// provider's #clock-cells specifier cells.
func (b *buildContext) clockReference(node int, idx int) (provider int, specifier []uint32, ok bool) {
	cells, err := b.tree.PropertyCells(node, "clocks")
	if err != nil {
		return 0, nil, false
	}

	pos := 0
	for entry := 0; pos < len(cells); entry++ {
		target, err := b.tree.NodeByPhandle(cells[pos])
		if err != nil {
			return 0, nil, false
		}
		width := int(b.propLongDefault(target, "#clock-cells", 0))
		if pos+1+width > len(cells) {
			return 0, nil, false
		}
		if entry == idx {
			return target, cells[pos+1 : pos+1+width], true
		}
		pos += 1 + width
	}
	return 0, nil, false
}

// clockName picks the name for clock input idx of a consumer node: the
// clock-names entry when present, otherwise the provider node's base name.
func (b *buildContext) clockName(consumer, provider int, idx int) string {
	if name, err := b.tree.PropertyStringIndex(consumer, "clock-names", idx); err == nil {
		return name
	}
	name, err := b.tree.NodeName(provider)
	if err != nil || name == "" {
		return "clk"
	}
	return fdt.BaseName(name)
}
