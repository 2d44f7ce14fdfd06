package mch

import (
	"log/slog"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/clock"
	"github.com/tinyrange/fdtmachine/internal/fdt"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// buildContext carries all mutable state of one machine build. A build is
// single-threaded and strictly ordered: CPUs, memory, device scan, clock
// tree, interrupt tree, GPIO wiring. The context is discarded after Build
// returns; a rebuild starts fresh.
type buildContext struct {
	cfg  Config
	tree *fdt.Tree
	log  *slog.Logger

	model string

	space   *hv.AddressSpace
	mapping *deviceMap
	cpus    []*chipset.CPU

	// clocks is the clock pass's own node index, separate from the device
	// mapping table (clock nodes deliberately map to no device).
	clocks     map[int]*clock.Clock
	clockOrder []int
}

func newBuildContext(cfg Config, tree *fdt.Tree) *buildContext {
	return &buildContext{
		cfg:     cfg,
		tree:    tree,
		log:     cfg.logger(),
		mapping: newDeviceMap(),
		clocks:  make(map[int]*clock.Clock),
	}
}

// nodeName returns a node's name, or a hex placeholder for a bad reference.
func (b *buildContext) nodeName(node int) string {
	name, err := b.tree.NodeName(node)
	if err != nil {
		return "<bad node>"
	}
	if name == "" {
		return "/"
	}
	return name
}

// propLongDefault reads an optional 1-2 cell integer property.
func (b *buildContext) propLongDefault(node int, name string, def uint64) uint64 {
	value, err := b.tree.PropertyLong(node, name)
	if err != nil {
		return def
	}
	return value
}
