package mch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/tinyrange/fdtmachine/internal/devices"
	"github.com/tinyrange/fdtmachine/internal/devices/i2c"
	"github.com/tinyrange/fdtmachine/internal/devices/pl080"
	"github.com/tinyrange/fdtmachine/internal/fdt"
)

func TestI2CBusScan(t *testing.T) {
	root := boardTree()
	root.Children = append(root.Children, fdt.Node{
		Name: "i2c@10002000",
		Properties: map[string]fdt.Property{
			"compatible":     fdt.Str("arm,versatile-i2c"),
			"reg":            fdt.U32(0x10002000, 0x1000),
			"#address-cells": fdt.U32(1),
			"#size-cells":    fdt.U32(0),
		},
		Children: []fdt.Node{
			{
				Name: "eeprom@50",
				Properties: map[string]fdt.Property{
					"compatible": fdt.Str("atmel,at24c-eeprom"),
					"reg":        fdt.U32(0x50),
				},
			},
			{
				// No reg address, so the node is visited but never attached.
				Name: "probe-only",
				Properties: map[string]fdt.Property{
					"compatible": fdt.Str("vendor,unaddressed-thing"),
				},
			},
		},
	})

	m := buildMachine(t, root)
	tree := m.Tree()

	busNode, err := tree.Subnode(tree.Root(), "i2c")
	require.NoError(t, err)
	dev, ok := m.DeviceForNode(busNode)
	require.True(t, ok)
	bus := dev.(*i2c.Controller)

	slave := bus.SlaveAt(0x50)
	require.NotNil(t, slave, "eeprom not attached to bus")
	eeprom := slave.(*i2c.EEPROM)
	assert.Equal(t, uint8(0x50), eeprom.BusAddress())

	eepromNode, err := tree.Subnode(busNode, "eeprom")
	require.NoError(t, err)
	mapped, ok := m.DeviceForNode(eepromNode)
	require.True(t, ok)
	assert.Same(t, slave, mapped)

	// The address-less child is recorded with no entity.
	probeNode, err := tree.Subnode(busNode, "probe-only")
	require.NoError(t, err)
	entry, ok := m.Entry(probeNode)
	require.True(t, ok)
	assert.Nil(t, entry.Dev)
}

func TestGPIOControllerBeatsInterruptController(t *testing.T) {
	root := boardTree()
	// PL061-style node marked as both controller kinds. The GPIO rule must
	// classify it first, so its mapping carries a live device even though
	// the interrupt pass would also have matched.
	root.Children = append(root.Children, fdt.Node{
		Name: "gpio@101e4000",
		Properties: map[string]fdt.Property{
			"compatible":           fdt.Str("arm,pl061"),
			"reg":                  fdt.U32(0x101e4000, 0x1000),
			"gpio-controller":      fdt.Flag(),
			"#gpio-cells":          fdt.U32(2),
			"interrupt-controller": fdt.Flag(),
			"#interrupt-cells":     fdt.U32(2),
		},
	})

	m := buildMachine(t, root)
	node, err := m.Tree().Subnode(m.Tree().Root(), "gpio")
	require.NoError(t, err)
	dev, ok := m.DeviceForNode(node)
	require.True(t, ok)
	assert.Equal(t, "pl061", dev.DeviceName())
}

func TestGenericBusChildrenScanned(t *testing.T) {
	root := boardTree()
	var uart fdt.Node
	var kept []fdt.Node
	for _, child := range root.Children {
		if child.Name == "uart@10000000" {
			uart = child
			continue
		}
		kept = append(kept, child)
	}
	root.Children = append(kept, fdt.Node{
		Name: "soc",
		Properties: map[string]fdt.Property{
			"compatible":     fdt.Str("simple-bus"),
			"#address-cells": fdt.U32(1),
			"#size-cells":    fdt.U32(1),
			"ranges":         fdt.Flag(),
		},
		Children: []fdt.Node{uart},
	})

	m := buildMachine(t, root)
	soc, err := m.Tree().Subnode(m.Tree().Root(), "soc")
	require.NoError(t, err)

	// The bus node itself has no model, but its child still instantiates.
	_, ok := m.DeviceForNode(soc)
	assert.False(t, ok)

	uartNode, err := m.Tree().Subnode(soc, "uart")
	require.NoError(t, err)
	dev, ok := m.DeviceForNode(uartNode)
	require.True(t, ok)
	assert.Equal(t, "uart1", dev.DeviceName())
}

func TestDMAControllerFixup(t *testing.T) {
	root := boardTree()
	root.Children = append(root.Children, fdt.Node{
		Name: "dma@10130000",
		Properties: map[string]fdt.Property{
			"compatible": fdt.Str("arm,pl080"),
			"reg":        fdt.U32(0x10130000, 0x1000),
		},
	})

	m := buildMachine(t, root)
	node, err := m.Tree().Subnode(m.Tree().Root(), "dma")
	require.NoError(t, err)
	dev, ok := m.DeviceForNode(node)
	require.True(t, ok)
	dma := dev.(*pl080.PL080)

	// The pre-realize fixup binds the controller's downstream view to the
	// system address space; realize fails without it.
	require.NotNil(t, dma.Downstream())
	assert.Same(t, m.Space, dma.Downstream())
	assert.Equal(t, 8, dma.Channels())
}

func TestStripVendor(t *testing.T) {
	assert.Equal(t, "pl011", stripVendor("arm,pl011"))
	assert.Equal(t, "pl011", stripVendor("pl011"))
	assert.Equal(t, "a,b", stripVendor("vendor,a,b"))
}

func TestDeviceBlocklisted(t *testing.T) {
	assert.True(t, deviceBlocklisted("pl050"))
	assert.True(t, deviceBlocklisted("pl050-kmi"))
	assert.False(t, deviceBlocklisted("pl011"))
}
