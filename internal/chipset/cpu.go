package chipset

// CPU is a processor entity discovered from the device tree. Its input lines
// are the architecture's physical interrupt pins (e.g. IRQ and FIQ on ARM).
type CPU struct {
	Type       string
	Index      int
	TimebaseHz uint64

	lines InputLines
}

// InputLine returns the CPU's interrupt pin with the given index.
func (c *CPU) InputLine(index int) (Line, error) {
	return c.lines.Line(index), nil
}

// LineLevel reports the current level of an interrupt pin; used by the
// hosting runtime to sample pending CPU interrupts.
func (c *CPU) LineLevel(index int) bool {
	return c.lines.Level(index)
}
