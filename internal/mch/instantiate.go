package mch

import (
	"strings"

	"github.com/tinyrange/fdtmachine/internal/chipset"
)

// Device types that need manual multi-entity construction and must never be
// instantiated directly from a compatible string.
var deviceBlocklist = []string{
	"pl050", // needs to be split out into keyboard/mouse devices
}

func deviceBlocklisted(id string) bool {
	for _, blocked := range deviceBlocklist {
		if strings.HasPrefix(id, blocked) {
			return true
		}
	}
	return false
}

// stripVendor removes the manufacturer segment of a compatible string
// ("vendor,foo" becomes "foo").
func stripVendor(compat string) string {
	if i := strings.IndexByte(compat, ','); i >= 0 {
		return compat[i+1:]
	}
	return compat
}

// tryCreateDevice walks a node's compatible list (most specific first) and
// returns the first device the registry can create, with pre-realize fixups
// applied. Returns nil when no candidate matches; the caller falls through
// to its next option.
func (b *buildContext) tryCreateDevice(node int) chipset.Device {
	compats, err := b.tree.PropertyStringList(node, "compatible")
	if err != nil {
		return nil
	}

	for _, compat := range compats {
		id := stripVendor(compat)
		if deviceBlocklisted(id) {
			b.log.Debug("compatible string blocklisted", "compatible", compat)
			continue
		}

		dev := newDeviceByName(id)
		if dev == nil {
			// Tolerate the underscore naming convention for the same type.
			if alt := strings.ReplaceAll(id, "-", "_"); alt != id {
				dev = newDeviceByName(alt)
			}
		}
		if dev != nil {
			b.applyFixup(dev, id)
			return dev
		}
	}
	return nil
}

func newDeviceByName(name string) chipset.Device {
	dev, err := chipset.TryNew(name)
	if err != nil {
		return nil
	}
	return dev
}

// applyFixup sets device properties that must be in place before realize
// and are keyed off the matched type name.
func (b *buildContext) applyFixup(dev chipset.Device, id string) {
	// pl080x DMA controllers drive memory through a downstream view.
	if strings.HasPrefix(id, "pl08") {
		if master, ok := dev.(chipset.DMAMaster); ok {
			master.SetDownstream(b.space)
		}
	}
}
