package mch

import (
	"fmt"

	"github.com/tinyrange/fdtmachine/internal/chipset"
)

// buildInterruptTree wires the interrupt fabric in order: the platform
// controller onto the CPUs first (fatal if that fails, no interrupt can be
// delivered without it), then per controller its input lines are sized,
// allocated, and connected to every consumer that names it as parent.
func (b *buildContext) buildInterruptTree() error {
	if err := b.wireRootInterruptParent(); err != nil {
		return err
	}

	for _, ctl := range b.tree.NodesWithProperty("interrupt-controller") {
		entry, ok := b.mapping.lookup(ctl)
		if !ok || entry.Dev == nil {
			continue
		}
		target, ok := entry.Dev.(chipset.LineTarget)
		if !ok {
			continue
		}

		count := b.controllerLineCount(ctl)
		if count == 0 {
			continue
		}

		entry.IRQs = make([]chipset.Line, count)
		for i := 0; i < count; i++ {
			line, err := target.InputLine(i)
			if err != nil {
				b.log.Warn("controller refused input line",
					"node", b.nodeName(ctl), "index", i, "err", err)
				entry.IRQs[i] = chipset.LineDetached()
				continue
			}
			entry.IRQs[i] = line
		}
		b.log.Debug("sized interrupt controller",
			"node", b.nodeName(ctl), "lines", count)

		b.connectInterruptConsumers(ctl, entry)
	}
	return nil
}

// wireRootInterruptParent connects the outputs of the tree's top-level
// interrupt controller to the physical interrupt inputs of each CPU.
func (b *buildContext) wireRootInterruptParent() error {
	root := b.tree.Root()

	phandle, err := b.tree.PropertyCell(root, "interrupt-parent")
	if err != nil {
		return fmt.Errorf("%w: root has no interrupt-parent", ErrNoInterruptParent)
	}
	ctl, err := b.tree.NodeByPhandle(phandle)
	if err != nil {
		return fmt.Errorf("%w: phandle 0x%x unresolved", ErrNoInterruptParent, phandle)
	}
	entry, ok := b.mapping.lookup(ctl)
	if !ok || entry.Dev == nil {
		return fmt.Errorf("%w: node %s has no device", ErrNoInterruptParent, b.nodeName(ctl))
	}
	source, ok := entry.Dev.(chipset.LineSource)
	if !ok {
		return fmt.Errorf("%w: device %s drives no output lines",
			ErrNoInterruptParent, entry.Dev.DeviceName())
	}

	linesFor := cpuLinesForArch(b.cfg.Arch)
	if linesFor == nil {
		b.log.Warn("no cpu interrupt layout for architecture", "arch", b.cfg.Arch)
		return nil
	}

	for _, cpu := range b.cpus {
		lines := linesFor(cpu)
		for i, line := range lines {
			out := cpu.Index*len(lines) + i
			if err := source.ConnectOutputLine(out, line); err != nil {
				b.log.Warn("cpu interrupt wiring failed", "cpu", cpu.Index,
					"line", i, "err", err)
				continue
			}
		}
		b.log.Debug("wired interrupt controller to cpu",
			"controller", entry.Dev.DeviceName(), "cpu", cpu.Index, "lines", len(lines))
	}
	return nil
}

// controllerLineCount sizes a controller's input array as the highest
// interrupt index any consumer requests plus one. Running it again after
// the lines exist yields the same answer.
func (b *buildContext) controllerLineCount(ctl int) int {
	count := 0
	for _, consumer := range b.tree.NodesWithProperty("interrupts") {
		if b.interruptParent(consumer) != ctl {
			continue
		}
		irq, ok := b.consumerInterruptIndex(ctl, consumer)
		if !ok {
			continue
		}
		if int(irq)+1 > count {
			count = int(irq) + 1
		}
	}
	return count
}

// connectInterruptConsumers attaches output line 0 of every consumer whose
// interrupt parent is ctl to the controller input its interrupts property
// names.
func (b *buildContext) connectInterruptConsumers(ctl int, ctlEntry *NodeEntry) {
	for _, consumer := range b.tree.NodesWithProperty("interrupts") {
		if consumer == ctl || b.interruptParent(consumer) != ctl {
			continue
		}
		entry, ok := b.mapping.lookup(consumer)
		if !ok || entry.Dev == nil {
			continue
		}
		source, ok := entry.Dev.(chipset.LineSource)
		if !ok {
			continue
		}

		irq, ok := b.consumerInterruptIndex(ctl, consumer)
		if !ok || int(irq) >= len(ctlEntry.IRQs) {
			b.log.Warn("interrupt index out of range",
				"node", b.nodeName(consumer), "irq", irq)
			continue
		}

		if err := source.ConnectOutputLine(0, ctlEntry.IRQs[irq]); err != nil {
			b.log.Warn("interrupt wiring failed",
				"node", b.nodeName(consumer), "irq", irq, "err", err)
			continue
		}
		b.log.Debug("connected interrupt", "node", b.nodeName(consumer),
			"controller", b.nodeName(ctl), "irq", irq)
	}
}

// consumerInterruptIndex extracts the controller input number from a
// consumer's interrupts property. Three-cell specifiers (GIC style) keep
// the interrupt number in the second cell; everything else keeps it first.
func (b *buildContext) consumerInterruptIndex(ctl, consumer int) (uint32, bool) {
	cellIdx := 0
	if cells, err := b.tree.PropertyCell(ctl, "#interrupt-cells"); err == nil && cells == 3 {
		cellIdx = 1
	}
	irq, err := b.tree.PropertyCellIndex(consumer, "interrupts", cellIdx)
	if err != nil {
		return 0, false
	}
	return irq, true
}

// interruptParent resolves a node's effective interrupt parent, walking up
// the tree since the property is inherited from ancestors. Returns -1 when
// no ancestor declares one.
func (b *buildContext) interruptParent(node int) int {
	for cur := node; ; {
		if phandle, err := b.tree.PropertyCell(cur, "interrupt-parent"); err == nil {
			parent, err := b.tree.NodeByPhandle(phandle)
			if err != nil {
				return -1
			}
			return parent
		}
		next, err := b.tree.Parent(cur)
		if err != nil {
			return -1
		}
		cur = next
	}
}
