// Package mch builds a runnable machine topology from a flattened device
// tree: CPUs, system memory, memory-mapped devices, and the clock,
// interrupt, and GPIO fabrics connecting them.
package mch

import (
	"fmt"
	"os"

	"github.com/tinyrange/fdtmachine/internal/chipset"
	"github.com/tinyrange/fdtmachine/internal/clock"
	"github.com/tinyrange/fdtmachine/internal/fdt"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

// Machine is the fully built topology.
type Machine struct {
	Model  string
	CPUs   []*chipset.CPU
	Clocks []*clock.Clock
	Space  *hv.AddressSpace

	mapping *deviceMap
	tree    *fdt.Tree
}

// Build parses the configured device tree and assembles the machine. The
// passes run in dependency order; a failure in any pass aborts the build.
func Build(cfg Config) (*Machine, error) {
	log := cfg.logger()

	blob := cfg.DTB
	if blob == nil {
		if cfg.DTBPath == "" {
			return nil, ErrNoDeviceTree
		}
		data, err := os.ReadFile(cfg.DTBPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDeviceTree, err)
		}
		blob = data
	}

	if cfg.Arch == "" || cfg.Arch == hv.ArchitectureInvalid {
		cfg.Arch = hv.ArchitectureARM64
	}

	tree, err := fdt.Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("mch: parse device tree: %w", err)
	}

	b := newBuildContext(cfg, tree)
	if model, err := tree.PropertyString(tree.Root(), "model"); err == nil {
		b.model = model
		log.Debug("building machine", "model", model)
	}

	if err := b.scanCPUs(); err != nil {
		return nil, fmt.Errorf("mch: cpu scan: %w", err)
	}
	if err := b.scanMemory(); err != nil {
		return nil, fmt.Errorf("mch: memory scan: %w", err)
	}
	b.scanRoot()
	b.buildClockTree()
	if err := b.buildInterruptTree(); err != nil {
		return nil, fmt.Errorf("mch: interrupt wiring: %w", err)
	}
	b.connectGPIOs()

	m := &Machine{
		Model:   b.model,
		CPUs:    b.cpus,
		Space:   b.space,
		mapping: b.mapping,
		tree:    b.tree,
	}
	for _, node := range b.clockOrder {
		m.Clocks = append(m.Clocks, b.clocks[node])
	}
	log.Debug("machine build complete", "cpus", len(m.CPUs),
		"devices", m.mapping.len(), "clocks", len(m.Clocks))
	return m, nil
}

// DeviceForNode returns the device built for a node reference, if any.
func (m *Machine) DeviceForNode(node int) (chipset.Device, bool) {
	entry, ok := m.mapping.lookup(node)
	if !ok || entry.Dev == nil {
		return nil, false
	}
	return entry.Dev, true
}

// Entry returns the full mapping record for a node reference.
func (m *Machine) Entry(node int) (*NodeEntry, bool) {
	return m.mapping.lookup(node)
}

// Devices returns every built device in scan order.
func (m *Machine) Devices() []chipset.Device {
	var out []chipset.Device
	for _, node := range m.mapping.nodes() {
		if entry, ok := m.mapping.lookup(node); ok && entry.Dev != nil {
			out = append(out, entry.Dev)
		}
	}
	return out
}

// Tree exposes the parsed device tree the machine was built from.
func (m *Machine) Tree() *fdt.Tree { return m.tree }

// SummaryCPU is one CPU row of a machine summary.
type SummaryCPU struct {
	Type       string `yaml:"type"`
	Index      int    `yaml:"index"`
	TimebaseHz uint64 `yaml:"timebase-hz,omitempty"`
}

// SummaryClock is one clock row of a machine summary.
type SummaryClock struct {
	Name   string `yaml:"name"`
	Hz     uint64 `yaml:"hz"`
	Source string `yaml:"source,omitempty"`
}

// Summary is a serializable view of the built topology.
type Summary struct {
	Model   string            `yaml:"model,omitempty"`
	Arch    string            `yaml:"arch"`
	RAM     hv.MemoryRegion   `yaml:"ram"`
	CPUs    []SummaryCPU      `yaml:"cpus"`
	MMIO    []hv.MemoryRegion `yaml:"mmio"`
	Devices []string          `yaml:"devices"`
	Clocks  []SummaryClock    `yaml:"clocks"`
}

// Summarize flattens the machine into a Summary for reporting.
func (m *Machine) Summarize() Summary {
	s := Summary{
		Model: m.Model,
		Arch:  string(m.Space.Architecture()),
		RAM:   m.Space.RAM(),
		MMIO:  m.Space.FixedRegions(),
	}
	for _, cpu := range m.CPUs {
		s.CPUs = append(s.CPUs, SummaryCPU{
			Type:       cpu.Type,
			Index:      cpu.Index,
			TimebaseHz: cpu.TimebaseHz,
		})
	}
	for _, dev := range m.Devices() {
		s.Devices = append(s.Devices, dev.DeviceName())
	}
	for _, clk := range m.Clocks {
		row := SummaryClock{Name: clk.Name(), Hz: clk.Hz()}
		if src := clk.Source(); src != nil {
			row.Source = src.Name()
		}
		s.Clocks = append(s.Clocks, row)
	}
	return s
}
