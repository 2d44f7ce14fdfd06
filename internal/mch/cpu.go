package mch

import (
	"fmt"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// scanCPUs instantiates one CPU per child of /cpus. With no /cpus node the
// configured fallback CPU type is used; with neither the build fails.
func (b *buildContext) scanCPUs() error {
	root := b.tree.Root()

	cpusNode, err := b.tree.Subnode(root, cpusNodeName)
	if err != nil {
		if b.cfg.CPUType == "" {
			return ErrNoCPU
		}
		cpu, err := chipset.NewCPU(b.cfg.CPUType, 0)
		if err != nil {
			return fmt.Errorf("fallback cpu type %q: %w", b.cfg.CPUType, err)
		}
		b.initCPU(cpu, b.cfg.DefaultCPUHz)
		b.log.Debug("no cpus node, using configured cpu", "type", b.cfg.CPUType)
		return nil
	}

	for _, node := range b.tree.Children(cpusNode) {
		compats, err := b.tree.PropertyStringList(node, "compatible")
		if err != nil || len(compats) == 0 {
			continue
		}

		index := len(b.cpus)
		cpu, err := chipset.NewCPU(compats[0], index)
		if err != nil {
			cpu, err = chipset.NewCPU(stripVendor(compats[0]), index)
		}
		if err != nil {
			// An unknown CPU type means nothing downstream can run; there
			// is no degraded mode for this.
			return fmt.Errorf("cpu node %s (%s): %w",
				b.nodeName(node), compats[0], err)
		}

		hz := b.propLongDefault(node, "timebase-frequency", b.cfg.DefaultCPUHz)
		b.initCPU(cpu, hz)
		b.log.Debug("added cpu", "node", b.nodeName(node),
			"type", cpu.Type, "index", cpu.Index, "timebase", cpu.TimebaseHz)
	}

	if len(b.cpus) == 0 {
		return ErrNoCPU
	}
	return nil
}

func (b *buildContext) initCPU(cpu *chipset.CPU, hz uint64) {
	if hz != 0 {
		cpu.TimebaseHz = hz
	}
	b.cpus = append(b.cpus, cpu)
}

// scanMemory sizes system RAM from the /memory node.
func (b *buildContext) scanMemory() error {
	root := b.tree.Root()

	memNode, err := b.tree.Subnode(root, memoryNodeName)
	if err != nil {
		return ErrNoMemoryNode
	}

	addr, size, err := b.tree.RegEntry(memNode, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoMemoryNode, err)
	}
	if size == 0 {
		return fmt.Errorf("%w: zero-sized memory region", ErrNoMemoryNode)
	}

	b.space = hv.NewAddressSpace(b.cfg.Arch, addr, size)
	b.log.Debug("sized system memory", "base", addr, "size", size)
	return nil
}
