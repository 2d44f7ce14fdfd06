package mch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/fdtmachine/internal/fdt"
	"github.com/tinyrange/fdtmachine/internal/hv"
)

func boardContext(t *testing.T, root fdt.Node) *buildContext {
	t.Helper()
	tree, err := fdt.Parse(buildBlob(t, root))
	require.NoError(t, err)

	b := newBuildContext(Config{
		Arch:   hv.ArchitectureARM64,
		Logger: quietLogger(),
	}, tree)
	require.NoError(t, b.scanCPUs())
	require.NoError(t, b.scanMemory())
	b.scanRoot()
	return b
}

func TestControllerLineCountIdempotent(t *testing.T) {
	b := boardContext(t, boardTree())

	ctl, err := b.tree.Subnode(b.tree.Root(), "intc")
	require.NoError(t, err)

	// uart asks for index 5, so the controller needs 6 inputs. Sizing must
	// give the same answer before and after the lines exist.
	assert.Equal(t, 6, b.controllerLineCount(ctl))
	require.NoError(t, b.buildInterruptTree())
	assert.Equal(t, 6, b.controllerLineCount(ctl))
}

func TestThreeCellInterruptSpecifier(t *testing.T) {
	root := boardTree()
	for i := range root.Children {
		switch root.Children[i].Name {
		case "intc@2c001000":
			root.Children[i].Properties["#interrupt-cells"] = fdt.U32(3)
		case "uart@10000000":
			// GIC-style specifier: the interrupt number is the middle cell.
			root.Children[i].Properties["interrupts"] = fdt.U32(0, 9, 4)
		}
	}

	b := boardContext(t, root)
	ctl, err := b.tree.Subnode(b.tree.Root(), "intc")
	require.NoError(t, err)
	assert.Equal(t, 10, b.controllerLineCount(ctl))

	require.NoError(t, b.buildInterruptTree())

	entry, ok := b.mapping.lookup(ctl)
	require.True(t, ok)
	require.Len(t, entry.IRQs, 10)
	intc := entry.Dev.(*testIntc)

	uartNode, err := b.tree.Subnode(b.tree.Root(), "uart")
	require.NoError(t, err)
	uart := b.mapping.entries[uartNode].Dev.(*testUART)

	uart.out.Set(0, true)
	assert.True(t, intc.in.Level(9))
}

func TestInterruptParentInheritance(t *testing.T) {
	root := boardTree()
	// Nest the uart under a simple-bus node with no interrupt-parent of its
	// own; the root's declaration must still apply.
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

	b := boardContext(t, root)
	ctl, err := b.tree.Subnode(b.tree.Root(), "intc")
	require.NoError(t, err)

	soc, err := b.tree.Subnode(b.tree.Root(), "soc")
	require.NoError(t, err)
	uartNode, err := b.tree.Subnode(soc, "uart")
	require.NoError(t, err)

	assert.Equal(t, ctl, b.interruptParent(uartNode))
	assert.Equal(t, 6, b.controllerLineCount(ctl))
}
