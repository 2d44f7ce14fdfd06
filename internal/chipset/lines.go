package chipset

import (
	"fmt"
	"sync"
)

// Line models a single interrupt or GPIO line that supports level and edge
// semantics.
type Line interface {
	SetLevel(high bool)
	Pulse()
}

type detachedLine struct{}

func (detachedLine) SetLevel(bool) {}
func (detachedLine) Pulse()        {}

// LineDetached returns a Line that drops all signals.
func LineDetached() Line { return detachedLine{} }

type lineFunc func(bool)

func (f lineFunc) SetLevel(level bool) {
	if f != nil {
		f(level)
	}
}

func (f lineFunc) Pulse() {
	if f != nil {
		f(true)
		f(false)
	}
}

// LineFromFunc adapts a level function to Line.
func LineFromFunc(fn func(bool)) Line { return lineFunc(fn) }

// InputLines manages a device's allocatable input lines. Devices embed it to
// implement LineTarget; line handles stay valid for the device's lifetime.
type InputLines struct {
	mu     sync.Mutex
	levels map[int]bool
	notify func(index int, level bool)
}

// OnChange installs the handler invoked when any input line changes level.
func (l *InputLines) OnChange(fn func(index int, level bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
}

// Line returns the handle for the given input line, creating its state on
// first use.
func (l *InputLines) Line(index int) Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.levels == nil {
		l.levels = make(map[int]bool)
	}
	if _, ok := l.levels[index]; !ok {
		l.levels[index] = false
	}
	return &inputLineHandle{owner: l, index: index}
}

// Level reports the current level of an input line.
func (l *InputLines) Level(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[index]
}

// Count returns the number of lines touched so far.
func (l *InputLines) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.levels)
}

func (l *InputLines) setLevel(index int, high bool) {
	l.mu.Lock()
	if l.levels == nil {
		l.levels = make(map[int]bool)
	}
	changed := l.levels[index] != high
	l.levels[index] = high
	notify := l.notify
	l.mu.Unlock()

	if changed && notify != nil {
		notify(index, high)
	}
}

type inputLineHandle struct {
	owner *InputLines
	index int
}

func (h *inputLineHandle) SetLevel(high bool) { h.owner.setLevel(h.index, high) }

func (h *inputLineHandle) Pulse() {
	h.owner.setLevel(h.index, true)
	h.owner.setLevel(h.index, false)
}

// OutputLines manages a device's output lines. Devices embed it to implement
// LineSource; an unconnected output drops its signals.
type OutputLines struct {
	mu      sync.Mutex
	targets map[int]Line
}

// Connect wires an output line to a target input line.
func (o *OutputLines) Connect(index int, target Line) error {
	if target == nil {
		return fmt.Errorf("chipset: nil target for output line %d", index)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.targets == nil {
		o.targets = make(map[int]Line)
	}
	if _, ok := o.targets[index]; ok {
		return fmt.Errorf("chipset: output line %d already connected", index)
	}
	o.targets[index] = target
	return nil
}

// Connected reports whether an output line has a target.
func (o *OutputLines) Connected(index int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.targets[index]
	return ok
}

// Set drives an output line's level; signals on unconnected lines are lost.
func (o *OutputLines) Set(index int, high bool) {
	o.mu.Lock()
	target := o.targets[index]
	o.mu.Unlock()
	if target != nil {
		target.SetLevel(high)
	}
}

// PulseOut pulses an output line.
func (o *OutputLines) PulseOut(index int) {
	o.mu.Lock()
	target := o.targets[index]
	o.mu.Unlock()
	if target != nil {
		target.Pulse()
	}
}
