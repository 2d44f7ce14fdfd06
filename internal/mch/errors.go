package mch

import "errors"

// Structural problems that abort a machine build. Everything else the
// builder encounters degrades to a placeholder or an unwired device.
var (
	ErrNoDeviceTree      = errors.New("mch: no device tree provided")
	ErrNoMemoryNode      = errors.New("mch: device tree has no usable memory node")
	ErrNoCPU             = errors.New("mch: no cpu could be created")
	ErrNoInterruptParent = errors.New("mch: missing or unmapped root interrupt-parent")

	// ErrAlreadyMapped reports a duplicate mapping-table insert. The scanner
	// checks for existing entries before instantiating, so hitting this is a
	// builder bug, never expected input.
	ErrAlreadyMapped = errors.New("mch: node already mapped")
)
