package mch

import (
	"github.com/tinyrange/fdtmachine/internal/chipset"
)

// connectGPIOs wires GPIO controller outputs to consuming devices. Each
// gpios entry is a (phandle, line, ...) specifier whose width follows the
// controller's #gpio-cells; consumers receive their inputs in specifier
// order, so a consumer's nth gpios entry lands on its input n.
func (b *buildContext) connectGPIOs() {
	for _, ctl := range b.tree.NodesWithProperty("gpio-controller") {
		entry, ok := b.mapping.lookup(ctl)
		if !ok || entry.Dev == nil {
			continue
		}
		source, ok := entry.Dev.(chipset.LineSource)
		if !ok {
			continue
		}

		cells := int(b.propLongDefault(ctl, "#gpio-cells", 2))
		if cells < 2 {
			b.log.Warn("unsupported #gpio-cells", "node", b.nodeName(ctl), "cells", cells)
			continue
		}

		for _, consumer := range b.tree.NodesWithProperty("gpios") {
			b.connectGPIOConsumer(ctl, source, cells, consumer)
		}
	}
}

func (b *buildContext) connectGPIOConsumer(ctl int, source chipset.LineSource, cells int, consumer int) {
	ce, ok := b.mapping.lookup(consumer)
	if !ok || ce.Dev == nil {
		return
	}
	target, ok := ce.Dev.(chipset.LineTarget)
	if !ok {
		return
	}

	vals, err := b.tree.PropertyCells(consumer, "gpios")
	if err != nil {
		return
	}

	for row := 0; (row+1)*cells <= len(vals); row++ {
		phandle := vals[row*cells]
		line := int(vals[row*cells+1])

		ref, err := b.tree.NodeByPhandle(phandle)
		if err != nil || ref != ctl {
			// Entry names a different controller; its own pass picks it up.
			continue
		}

		in, err := target.InputLine(len(ce.GPIOs))
		if err != nil {
			b.log.Warn("gpio consumer refused input", "node", b.nodeName(consumer),
				"index", len(ce.GPIOs), "err", err)
			continue
		}
		if err := source.ConnectOutputLine(line, in); err != nil {
			b.log.Warn("gpio wiring failed", "node", b.nodeName(consumer),
				"line", line, "err", err)
			continue
		}
		ce.GPIOs = append(ce.GPIOs, in)
		b.log.Debug("connected gpio", "node", b.nodeName(consumer),
			"controller", b.nodeName(ctl), "line", line)
	}
}
