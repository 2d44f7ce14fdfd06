package mch

import (
	"errors"
	"strings"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/devices/unimplemented"
	"github.com/tinyrange/fdtmachine/internal/fdt"
)

const (
	cpusNodeName   = "cpus"
	memoryNodeName = "memory"
)

type scanItem struct {
	node   int
	parent chipset.Device
}

// scanRoot classifies every node outside the cpus and memory subtrees,
// populating the mapping table. The walk uses an explicit stack so scan
// depth is not tied to goroutine stack depth.
func (b *buildContext) scanRoot() {
	root := b.tree.Root()
	children := b.tree.Children(root)

	var stack []scanItem
	for i := len(children) - 1; i >= 0; i-- {
		name := fdt.BaseName(b.nodeName(children[i]))
		if name == cpusNodeName || name == memoryNodeName {
			continue
		}
		stack = append(stack, scanItem{node: children[i]})
	}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var dev chipset.Device
		if compats, err := b.tree.PropertyStringList(item.node, "compatible"); err == nil && len(compats) > 0 {
			dev = b.addDeviceNode(item.parent, item.node)
		}

		sub := b.tree.Children(item.node)
		for i := len(sub) - 1; i >= 0; i-- {
			stack = append(stack, scanItem{node: sub[i], parent: dev})
		}
	}
}

// addDeviceNode decides what kind of hardware entity a node represents and
// instantiates it. The rule order below is load-bearing: node shapes are
// ambiguous (a GPIO controller is frequently also marked as an interrupt
// controller, bus nodes carry compatible strings), so later rules must
// never preempt earlier ones.
func (b *buildContext) addDeviceNode(parent chipset.Device, node int) chipset.Device {
	if entry, ok := b.mapping.lookup(node); ok {
		return entry.Dev
	}
	name := b.nodeName(node)

	// Clock nodes are created by the clock pass, never as devices.
	if b.tree.HasProperty(node, "#clock-cells") {
		b.log.Debug("deferring clock node", "node", name)
		return b.recordNode(node, nil)
	}

	if devType, err := b.tree.PropertyString(node, "device_type"); err == nil {
		if strings.HasPrefix(devType, "pci") {
			return b.recordNode(node, b.addPCIBus(parent, node))
		}
		if strings.HasPrefix(devType, "soc") {
			return b.recordNode(node, b.addGenericBus(parent, node))
		}
	}

	if len(b.tree.Children(node)) > 0 {
		if b.tree.HasProperty(node, "ranges") {
			return b.recordNode(node, b.addGenericBus(parent, node))
		}

		if compats, err := b.tree.PropertyStringList(node, "compatible"); err == nil {
			for _, compat := range compats {
				// Compatible strings alone are not a reliable bus-type
				// signal; require the node name to agree.
				if strings.Contains(compat, "i2c") && strings.Contains(name, "i2c") {
					return b.recordNode(node, b.addI2CBus(parent, node))
				}
				if strings.Contains(compat, "spi") && strings.Contains(name, "spi") {
					return b.recordNode(node, b.addSPIBus(parent, node))
				}
			}
		}
	}

	// A node may be marked as both controller kinds; GPIO wins.
	if b.tree.HasProperty(node, "gpio-controller") {
		return b.recordNode(node, b.addGPIOController(parent, node))
	}
	if b.tree.HasProperty(node, "interrupt-controller") {
		return b.recordNode(node, b.addInterruptController(parent, node))
	}

	if dev := b.addSimpleDevice(parent, node); dev != nil {
		return b.recordNode(node, dev)
	}

	if dev := b.addPlaceholderDevice(node); dev != nil {
		return b.recordNode(node, dev)
	}

	b.log.Debug("no device created for node", "node", name)
	b.recordNode(node, nil)
	return nil
}

// recordNode inserts the node's mapping entry and returns the device for
// caller convenience.
func (b *buildContext) recordNode(node int, dev chipset.Device) chipset.Device {
	if _, err := b.mapping.record(node, dev); err != nil {
		// The already-mapped guard in addDeviceNode makes this unreachable
		// unless a bus builder double-records.
		b.log.Error("duplicate mapping insert", "node", b.nodeName(node), "err", err)
		if entry, ok := b.mapping.lookup(node); ok {
			return entry.Dev
		}
	}
	return dev
}

func (b *buildContext) addPCIBus(parent chipset.Device, node int) chipset.Device {
	b.log.Debug("adding node as pci bus", "node", b.nodeName(node))
	dev := b.tryCreateDevice(node)
	if dev == nil {
		return nil
	}
	return b.realizeAndMap(node, dev)
}

func (b *buildContext) addGenericBus(parent chipset.Device, node int) chipset.Device {
	b.log.Debug("adding node as generic bus", "node", b.nodeName(node))
	dev := b.tryCreateDevice(node)
	if dev == nil {
		// Address-translating busses commonly have no device model of
		// their own; their children are still scanned.
		return nil
	}
	return b.realizeAndMap(node, dev)
}

func (b *buildContext) addSPIBus(parent chipset.Device, node int) chipset.Device {
	b.log.Debug("adding node as spi bus", "node", b.nodeName(node))
	dev := b.tryCreateDevice(node)
	if dev == nil {
		return nil
	}
	return b.realizeAndMap(node, dev)
}

// addI2CBus instantiates an I2C bus controller and walks its child nodes,
// attaching each addressable slave to the bus. Child nodes are always
// recorded, even when skipped, so the main scan never revisits them.
func (b *buildContext) addI2CBus(parent chipset.Device, node int) chipset.Device {
	busName := b.nodeName(node)

	dev := b.tryCreateDevice(node)
	var bus chipset.I2CBus
	if dev != nil {
		if dev = b.realizeAndMap(node, dev); dev != nil {
			bus, _ = dev.(chipset.I2CBus)
			b.log.Debug("added i2c bus", "node", busName)
		}
	}
	if bus == nil {
		// Child instantiation needs a live bus; map the children so the
		// scanner does not retry them.
		b.log.Debug("failed to instantiate i2c bus", "node", busName)
	}

	for _, sub := range b.tree.Children(node) {
		subName := b.nodeName(sub)
		if bus == nil {
			b.recordNode(sub, nil)
			continue
		}

		addr, _, err := b.tree.RegEntry(sub, 0)
		if err != nil {
			b.log.Debug("i2c slave has no reg address, skipping", "node", subName)
			b.recordNode(sub, nil)
			continue
		}

		child := b.tryCreateDevice(sub)
		if child != nil {
			if slave, ok := child.(chipset.I2CSlave); ok {
				slave.SetBusAddress(uint8(addr))
			}
			if err := child.Realize(); err != nil {
				b.log.Warn("i2c slave realize failed", "node", subName, "err", err)
				child = nil
			} else if err := bus.AttachSlave(uint8(addr), child); err != nil {
				b.log.Warn("i2c slave attach failed", "node", subName, "err", err)
			} else {
				b.log.Debug("added i2c slave", "node", subName, "bus", busName, "addr", addr)
			}
		}
		b.recordNode(sub, child)
	}

	return dev
}

func (b *buildContext) addGPIOController(parent chipset.Device, node int) chipset.Device {
	b.log.Debug("adding node as gpio controller", "node", b.nodeName(node))
	dev := b.tryCreateDevice(node)
	if dev == nil {
		return nil
	}
	return b.realizeAndMap(node, dev)
}

func (b *buildContext) addInterruptController(parent chipset.Device, node int) chipset.Device {
	b.log.Debug("adding node as interrupt controller", "node", b.nodeName(node))
	dev := b.tryCreateDevice(node)
	if dev == nil {
		return nil
	}
	return b.realizeAndMap(node, dev)
}

// addSimpleDevice attempts a plain memory-mapped device instantiation from
// the node's compatible list.
func (b *buildContext) addSimpleDevice(parent chipset.Device, node int) chipset.Device {
	dev := b.tryCreateDevice(node)
	if dev == nil {
		return nil
	}
	return b.realizeAndMap(node, dev)
}

// realizeAndMap finalizes a device and registers each of its reg regions in
// the system address space. Realize failure degrades the node to the next
// classifier fallback.
func (b *buildContext) realizeAndMap(node int, dev chipset.Device) chipset.Device {
	name := b.nodeName(node)

	if err := dev.Realize(); err != nil {
		b.log.Warn("device realize failed", "node", name, "err", err)
		return nil
	}

	count, err := b.tree.RegCount(node)
	if err != nil {
		if !errors.Is(err, fdt.ErrNotFound) {
			b.log.Warn("bad reg property", "node", name, "err", err)
		}
		return dev
	}

	for i := 0; i < count; i++ {
		addr, size, err := b.tree.RegEntry(node, i)
		if err != nil {
			b.log.Warn("bad reg entry", "node", name, "index", i, "err", err)
			continue
		}
		region, err := b.space.RegisterFixed(name, addr, size)
		if err != nil {
			b.log.Warn("mmio registration failed", "node", name, "err", err)
			continue
		}
		if mapper, ok := dev.(chipset.MMIOMapper); ok {
			if err := mapper.MapRegion(i, region); err != nil {
				b.log.Warn("mmio map rejected by device", "node", name, "err", err)
			}
		}
	}
	return dev
}

// addPlaceholderDevice covers the union of a node's register regions with
// an unimplemented device so stray accesses to unmodeled hardware cannot
// reach unrelated memory.
func (b *buildContext) addPlaceholderDevice(node int) chipset.Device {
	name := b.nodeName(node)

	count, err := b.tree.RegCount(node)
	if err != nil || count == 0 {
		return nil
	}

	lo := ^uint64(0)
	hi := uint64(0)
	for i := 0; i < count; i++ {
		addr, size, err := b.tree.RegEntry(node, i)
		if err != nil || size == 0 {
			continue
		}
		if addr < lo {
			lo = addr
		}
		if addr+size > hi {
			hi = addr + size
		}
	}
	if hi <= lo {
		return nil
	}

	region, err := b.space.RegisterFixed(name, lo, hi-lo)
	if err != nil {
		b.log.Warn("placeholder registration failed", "node", name, "err", err)
		return nil
	}

	b.log.Debug("covering unmodeled device", "node", name,
		"base", region.Address, "size", region.Size)
	dev := unimplemented.New(name, region)
	if err := dev.Realize(); err != nil {
		return nil
	}
	return dev
}
