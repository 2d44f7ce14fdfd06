// Package clock models clock sources and fixed-factor derived clocks.
//
// Clocks form a rooted forest: source clocks carry a fixed rate, derived
// clocks name exactly one parent and scale its rate by an integer
// multiplier/divisor. Rate changes propagate eagerly from a source to its
// dependents; consumers always observe the current rate through Hz.
package clock

import (
	"errors"
	"fmt"
	"math"
)

var ErrHasSource = errors.New("clock: source already set")

// Clock is a single clock entity. A clock with neither a set rate nor a
// source is a valid placeholder that never produces a rate.
type Clock struct {
	name string
	hz   uint64

	source *Clock
	mult   uint64
	div    uint64

	// dependents are the derived clocks recomputed when this clock's rate
	// changes.
	dependents []*Clock
}

// New creates a clock with no rate and no source.
func New(name string) *Clock {
	return &Clock{name: name, mult: 1, div: 1}
}

// Name returns the clock's name.
func (c *Clock) Name() string { return c.name }

// Hz returns the current rate, or 0 when no rate has ever been derived.
func (c *Clock) Hz() uint64 { return c.hz }

// Source returns the parent clock, or nil for a source clock.
func (c *Clock) Source() *Clock { return c.source }

// SetHz sets the clock's rate and recomputes every dependent clock.
func (c *Clock) SetHz(hz uint64) {
	c.hz = hz
	for _, dep := range c.dependents {
		dep.SetHz(scaleRate(hz, dep.mult, dep.div))
	}
}

// SetSource links the clock to a parent with a fixed multiplier/divisor and
// immediately derives the current rate. Relinking an already-derived clock
// is rejected.
func (c *Clock) SetSource(src *Clock, mult, div uint64) error {
	if c.source != nil {
		return fmt.Errorf("%w: clock %q", ErrHasSource, c.name)
	}
	if src == c {
		return fmt.Errorf("clock: %q cannot source itself", c.name)
	}
	if mult == 0 {
		mult = 1
	}
	if div == 0 {
		div = 1
	}
	c.source = src
	c.mult = mult
	c.div = div
	src.dependents = append(src.dependents, c)
	c.SetHz(scaleRate(src.hz, mult, div))
	return nil
}

// scaleRate computes hz * mult / div, dividing first when the product would
// overflow 64 bits.
func scaleRate(hz, mult, div uint64) uint64 {
	if mult != 0 && hz > math.MaxUint64/mult {
		return hz / div * mult
	}
	return hz * mult / div
}
