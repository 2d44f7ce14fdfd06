package fdt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing node or property. Callers usually treat
	// it as "feature absent" rather than a failure.
	ErrNotFound = errors.New("fdt: not found")
	// ErrBadNode reports a node reference that does not name a parsed node.
	ErrBadNode = errors.New("fdt: bad node reference")
)

// Tree is an immutable parsed FDT blob. Nodes are referred to by their byte
// offset inside the structure block; offsets are stable for the lifetime of
// the tree and are used as join keys by everything built on top of it.
type Tree struct {
	nodes    map[int]*treeNode
	order    []int
	phandles map[uint32]int
}

type treeNode struct {
	name     string
	parent   int
	children []int
	props    map[string][]byte
}

// Parse decodes an FDT v17 blob into a Tree.
func Parse(blob []byte) (*Tree, error) {
	if len(blob) < fdtHeaderSize {
		return nil, fmt.Errorf("fdt: blob too short (%d bytes)", len(blob))
	}
	if magic := binary.BigEndian.Uint32(blob[0:4]); magic != fdtMagic {
		return nil, fmt.Errorf("fdt: bad magic 0x%08x", magic)
	}
	totalSize := binary.BigEndian.Uint32(blob[4:8])
	offStruct := binary.BigEndian.Uint32(blob[8:12])
	offStrings := binary.BigEndian.Uint32(blob[12:16])
	version := binary.BigEndian.Uint32(blob[20:24])
	sizeStrings := binary.BigEndian.Uint32(blob[32:36])
	sizeStruct := binary.BigEndian.Uint32(blob[36:40])

	if version < fdtLastCompVer {
		return nil, fmt.Errorf("fdt: unsupported version %d", version)
	}
	if uint64(totalSize) > uint64(len(blob)) ||
		uint64(offStruct)+uint64(sizeStruct) > uint64(totalSize) ||
		uint64(offStrings)+uint64(sizeStrings) > uint64(totalSize) {
		return nil, fmt.Errorf("fdt: header sizes exceed blob length")
	}

	structBlock := blob[offStruct : offStruct+sizeStruct]
	stringsBlock := blob[offStrings : offStrings+sizeStrings]

	t := &Tree{
		nodes:    make(map[int]*treeNode),
		phandles: make(map[uint32]int),
	}

	var stack []int
	pos := 0
	for {
		if pos+4 > len(structBlock) {
			return nil, fmt.Errorf("fdt: truncated structure block")
		}
		tokenOff := pos
		token := binary.BigEndian.Uint32(structBlock[pos : pos+4])
		pos += 4

		switch token {
		case fdtBeginNodeToken:
			name, next, err := readNodeName(structBlock, pos)
			if err != nil {
				return nil, err
			}
			pos = next

			node := &treeNode{
				name:   name,
				parent: -1,
				props:  make(map[string][]byte),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				node.parent = parent
				t.nodes[parent].children = append(t.nodes[parent].children, tokenOff)
			}
			t.nodes[tokenOff] = node
			t.order = append(t.order, tokenOff)
			stack = append(stack, tokenOff)

		case fdtEndNodeToken:
			if len(stack) == 0 {
				return nil, fmt.Errorf("fdt: unbalanced end-node token at 0x%x", tokenOff)
			}
			stack = stack[:len(stack)-1]

		case fdtPropToken:
			if len(stack) == 0 {
				return nil, fmt.Errorf("fdt: property outside node at 0x%x", tokenOff)
			}
			if pos+8 > len(structBlock) {
				return nil, fmt.Errorf("fdt: truncated property at 0x%x", tokenOff)
			}
			length := int(binary.BigEndian.Uint32(structBlock[pos : pos+4]))
			nameOff := int(binary.BigEndian.Uint32(structBlock[pos+4 : pos+8]))
			pos += 8
			if pos+length > len(structBlock) {
				return nil, fmt.Errorf("fdt: property value overruns structure block at 0x%x", tokenOff)
			}
			name, err := readPropName(stringsBlock, nameOff)
			if err != nil {
				return nil, err
			}
			value := make([]byte, length)
			copy(value, structBlock[pos:pos+length])
			pos = align4(pos + length)

			owner := stack[len(stack)-1]
			t.nodes[owner].props[name] = value
			if (name == "phandle" || name == "linux,phandle") && length == 4 {
				t.phandles[binary.BigEndian.Uint32(value)] = owner
			}

		case fdtNopToken:
			// skip

		case fdtEndToken:
			if len(stack) != 0 {
				return nil, fmt.Errorf("fdt: end token with %d open nodes", len(stack))
			}
			if len(t.order) == 0 {
				return nil, fmt.Errorf("fdt: blob contains no nodes")
			}
			return t, nil

		default:
			return nil, fmt.Errorf("fdt: unknown token 0x%x at 0x%x", token, tokenOff)
		}
	}
}

func readNodeName(block []byte, pos int) (string, int, error) {
	end := pos
	for end < len(block) && block[end] != 0 {
		end++
	}
	if end == len(block) {
		return "", 0, fmt.Errorf("fdt: unterminated node name at 0x%x", pos)
	}
	return string(block[pos:end]), align4(end + 1), nil
}

func readPropName(strings []byte, off int) (string, error) {
	if off >= len(strings) {
		return "", fmt.Errorf("fdt: property name offset 0x%x out of range", off)
	}
	end := off
	for end < len(strings) && strings[end] != 0 {
		end++
	}
	return string(strings[off:end]), nil
}

func align4(v int) int { return (v + 3) &^ 3 }

// Root returns the reference of the root node.
func (t *Tree) Root() int { return t.order[0] }

// AllNodes returns every node reference in document order.
func (t *Tree) AllNodes() []int {
	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

func (t *Tree) node(ref int) (*treeNode, error) {
	n, ok := t.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", ErrBadNode, ref)
	}
	return n, nil
}

// NodeName returns the full name ("uart@10000000") of a node.
func (t *Tree) NodeName(ref int) (string, error) {
	n, err := t.node(ref)
	if err != nil {
		return "", err
	}
	return n.name, nil
}

// Parent returns the parent reference of a node, or ErrNotFound at the root.
func (t *Tree) Parent(ref int) (int, error) {
	n, err := t.node(ref)
	if err != nil {
		return -1, err
	}
	if n.parent < 0 {
		return -1, fmt.Errorf("%w: node 0x%x has no parent", ErrNotFound, ref)
	}
	return n.parent, nil
}

// Children returns the direct child references of a node in document order.
func (t *Tree) Children(ref int) []int {
	n, err := t.node(ref)
	if err != nil {
		return nil
	}
	out := make([]int, len(n.children))
	copy(out, n.children)
	return out
}

// Subnode finds a direct child whose name (with or without a unit-address
// suffix) matches the given name.
func (t *Tree) Subnode(ref int, name string) (int, error) {
	n, err := t.node(ref)
	if err != nil {
		return -1, err
	}
	for _, child := range n.children {
		cn := t.nodes[child].name
		if cn == name || BaseName(cn) == name {
			return child, nil
		}
	}
	return -1, fmt.Errorf("%w: subnode %q of node 0x%x", ErrNotFound, name, ref)
}

// NodesWithProperty returns every node carrying the named property, in
// document order.
func (t *Tree) NodesWithProperty(name string) []int {
	var out []int
	for _, ref := range t.order {
		if _, ok := t.nodes[ref].props[name]; ok {
			out = append(out, ref)
		}
	}
	return out
}

// NodeByPhandle resolves a phandle value to a node reference.
func (t *Tree) NodeByPhandle(phandle uint32) (int, error) {
	ref, ok := t.phandles[phandle]
	if !ok {
		return -1, fmt.Errorf("%w: phandle %d", ErrNotFound, phandle)
	}
	return ref, nil
}

// Property returns the raw value of a property on a node.
func (t *Tree) Property(ref int, name string) ([]byte, error) {
	n, err := t.node(ref)
	if err != nil {
		return nil, err
	}
	value, ok := n.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: property %q on node %q", ErrNotFound, name, n.name)
	}
	return value, nil
}

// HasProperty reports whether the node carries the named property, even when
// the property value is empty (presence flags like "gpio-controller").
func (t *Tree) HasProperty(ref int, name string) bool {
	n, err := t.node(ref)
	if err != nil {
		return false
	}
	_, ok := n.props[name]
	return ok
}

// PropertyString returns a property interpreted as a single NUL-terminated
// string.
func (t *Tree) PropertyString(ref int, name string) (string, error) {
	value, err := t.Property(ref, name)
	if err != nil {
		return "", err
	}
	if len(value) == 0 || value[len(value)-1] != 0 {
		return "", fmt.Errorf("%w: property %q is not a string", ErrBadValue, name)
	}
	for i, b := range value {
		if b == 0 {
			return string(value[:i]), nil
		}
	}
	return string(value[:len(value)-1]), nil
}

// PropertyStringList returns a property interpreted as a NUL-separated string
// list (e.g. "compatible", "clock-names").
func (t *Tree) PropertyStringList(ref int, name string) ([]string, error) {
	value, err := t.Property(ref, name)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 || value[len(value)-1] != 0 {
		return nil, fmt.Errorf("%w: property %q is not a string list", ErrBadValue, name)
	}
	var out []string
	start := 0
	for i, b := range value {
		if b == 0 {
			out = append(out, string(value[start:i]))
			start = i + 1
		}
	}
	return out, nil
}

// PropertyStringIndex returns entry idx of a string-list property.
func (t *Tree) PropertyStringIndex(ref int, name string, idx int) (string, error) {
	list, err := t.PropertyStringList(ref, name)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(list) {
		return "", fmt.Errorf("%w: string index %d of property %q", ErrIndexOutOfRange, idx, name)
	}
	return list[idx], nil
}

// PropertyCells returns a property as a slice of 32-bit cells.
func (t *Tree) PropertyCells(ref int, name string) ([]uint32, error) {
	value, err := t.Property(ref, name)
	if err != nil {
		return nil, err
	}
	if len(value)%4 != 0 {
		return nil, fmt.Errorf("%w: property %q length %d is not cell aligned", ErrBadValue, name, len(value))
	}
	out := make([]uint32, len(value)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(value[i*4:])
	}
	return out, nil
}

// PropertyCell returns the first 32-bit cell of a property.
func (t *Tree) PropertyCell(ref int, name string) (uint32, error) {
	cells, err := t.PropertyCells(ref, name)
	if err != nil {
		return 0, err
	}
	if len(cells) == 0 {
		return 0, fmt.Errorf("%w: property %q is empty", ErrBadValue, name)
	}
	return cells[0], nil
}

// PropertyCellIndex returns cell idx of a cell-array property.
func (t *Tree) PropertyCellIndex(ref int, name string, idx int) (uint32, error) {
	cells, err := t.PropertyCells(ref, name)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(cells) {
		return 0, fmt.Errorf("%w: cell index %d of property %q", ErrIndexOutOfRange, idx, name)
	}
	return cells[idx], nil
}
