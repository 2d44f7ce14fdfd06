package clock

import (
	"errors"
	"math"
	"testing"
)

func TestSourceClockRate(t *testing.T) {
	osc := New("osc24m")
	if osc.Hz() != 0 {
		t.Errorf("new clock Hz = %d, want 0", osc.Hz())
	}
	osc.SetHz(24000000)
	if osc.Hz() != 24000000 {
		t.Errorf("Hz = %d, want 24000000", osc.Hz())
	}
	if osc.Source() != nil {
		t.Error("source clock reports a parent")
	}
}

func TestDerivedClockFollowsSource(t *testing.T) {
	refclk := New("refclk")
	refclk.SetHz(100000000)

	busclk := New("busclk")
	if err := busclk.SetSource(refclk, 1, 4); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if busclk.Hz() != 25000000 {
		t.Errorf("derived Hz = %d, want 25000000", busclk.Hz())
	}
	if busclk.Source() != refclk {
		t.Error("derived clock does not report its parent")
	}

	// A later rate change on the source must reach the dependent without
	// any re-registration.
	refclk.SetHz(200000000)
	if busclk.Hz() != 50000000 {
		t.Errorf("derived Hz after source change = %d, want 50000000", busclk.Hz())
	}
}

func TestDerivedClockChain(t *testing.T) {
	osc := New("osc")
	pll := New("pll")
	uart := New("uartclk")

	if err := pll.SetSource(osc, 10, 1); err != nil {
		t.Fatalf("pll SetSource: %v", err)
	}
	if err := uart.SetSource(pll, 1, 2); err != nil {
		t.Fatalf("uart SetSource: %v", err)
	}

	osc.SetHz(12000000)
	if pll.Hz() != 120000000 {
		t.Errorf("pll Hz = %d, want 120000000", pll.Hz())
	}
	if uart.Hz() != 60000000 {
		t.Errorf("uart Hz = %d, want 60000000", uart.Hz())
	}
}

func TestSetSourceRejectsRelink(t *testing.T) {
	a := New("a")
	b := New("b")
	c := New("c")

	if err := c.SetSource(a, 1, 1); err != nil {
		t.Fatalf("first SetSource: %v", err)
	}
	if err := c.SetSource(b, 1, 1); !errors.Is(err, ErrHasSource) {
		t.Errorf("relink err = %v, want ErrHasSource", err)
	}
	if err := a.SetSource(a, 1, 1); err == nil {
		t.Error("self-source succeeded")
	}
}

func TestSetSourceZeroFactorsDefaultToOne(t *testing.T) {
	src := New("src")
	src.SetHz(1000)

	dep := New("dep")
	if err := dep.SetSource(src, 0, 0); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if dep.Hz() != 1000 {
		t.Errorf("Hz = %d, want 1000", dep.Hz())
	}
}

func TestScaleRateOverflow(t *testing.T) {
	src := New("src")
	src.SetHz(math.MaxUint64 / 2)

	dep := New("dep")
	if err := dep.SetSource(src, 4, 8); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	// mult*hz overflows, so the divide-first path runs: hz/8*4 == hz/2.
	var want uint64 = math.MaxUint64 / 2 / 8 * 4
	if dep.Hz() != want {
		t.Errorf("Hz = %d, want %d", dep.Hz(), want)
	}
}
