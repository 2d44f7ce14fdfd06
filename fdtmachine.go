// Package fdtmachine builds machine topologies from flattened device trees.
// A Machine holds the CPUs, memory layout, devices, and the clock, interrupt,
// and GPIO wiring described by a device tree blob.
package fdtmachine

import (
	_ "github.com/tinyrange/fdtmachine/internal/devices"
	"github.com/tinyrange/fdtmachine/internal/mch"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from internal/mch
// -----------------------------------------------------------------------------

// Machine is a fully built machine topology.
type Machine = mch.Machine

// Config describes a machine build.
type Config = mch.Config

// NodeEntry associates a device-tree node with its runtime entity.
type NodeEntry = mch.NodeEntry

// Summary is a serializable view of a built topology.
type Summary = mch.Summary

// Common sentinel errors.
var (
	ErrNoDeviceTree      = mch.ErrNoDeviceTree
	ErrNoMemoryNode      = mch.ErrNoMemoryNode
	ErrNoCPU             = mch.ErrNoCPU
	ErrNoInterruptParent = mch.ErrNoInterruptParent
)

// Build parses the configured device tree and assembles the machine. The
// built-in device catalog is registered by importing this package.
func Build(cfg Config) (*Machine, error) {
	return mch.Build(cfg)
}

// LoadConfig reads a machine config from a YAML file.
func LoadConfig(path string) (Config, error) {
	return mch.LoadConfig(path)
}
