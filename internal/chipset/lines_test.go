package chipset

import "testing"

func TestInputLinesNotifyOnChange(t *testing.T) {
	var in InputLines
	var gotIndex int
	var gotLevel bool
	calls := 0
	in.OnChange(func(index int, level bool) {
		gotIndex, gotLevel = index, level
		calls++
	})

	line := in.Line(3)
	line.SetLevel(true)
	if calls != 1 || gotIndex != 3 || !gotLevel {
		t.Fatalf("after assert: calls=%d index=%d level=%v", calls, gotIndex, gotLevel)
	}

	// Re-asserting the same level is not a change.
	line.SetLevel(true)
	if calls != 1 {
		t.Errorf("redundant assert notified, calls=%d", calls)
	}

	line.SetLevel(false)
	if calls != 2 || gotLevel {
		t.Errorf("after deassert: calls=%d level=%v", calls, gotLevel)
	}
}

func TestInputLinesPulse(t *testing.T) {
	var in InputLines
	var edges []bool
	in.OnChange(func(_ int, level bool) { edges = append(edges, level) })

	in.Line(0).Pulse()
	if len(edges) != 2 || !edges[0] || edges[1] {
		t.Errorf("pulse edges = %v, want [true false]", edges)
	}
	if in.Level(0) {
		t.Error("line high after pulse")
	}
}

func TestInputLinesCount(t *testing.T) {
	var in InputLines
	if in.Count() != 0 {
		t.Errorf("fresh Count = %d", in.Count())
	}
	in.Line(0)
	in.Line(5)
	in.Line(0)
	if in.Count() != 2 {
		t.Errorf("Count = %d, want 2", in.Count())
	}
}

func TestOutputLinesConnect(t *testing.T) {
	var out OutputLines
	var in InputLines

	// Unconnected output drops the signal.
	out.Set(0, true)

	if err := out.Connect(0, in.Line(4)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := out.Connect(0, in.Line(5)); err == nil {
		t.Error("duplicate Connect succeeded")
	}
	if err := out.Connect(1, nil); err == nil {
		t.Error("nil target Connect succeeded")
	}

	out.Set(0, true)
	if !in.Level(4) {
		t.Error("signal did not reach input line")
	}
	out.Set(0, false)
	if in.Level(4) {
		t.Error("deassert did not reach input line")
	}
}

func TestLineDetached(t *testing.T) {
	line := LineDetached()
	line.SetLevel(true)
	line.Pulse()
}

func TestCPULines(t *testing.T) {
	RegisterCPUType("test-cpu-lines", 1000000)
	cpu, err := NewCPU("test-cpu-lines", 0)
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}
	if cpu.TimebaseHz != 1000000 {
		t.Errorf("TimebaseHz = %d", cpu.TimebaseHz)
	}

	irq, err := cpu.InputLine(0)
	if err != nil {
		t.Fatalf("InputLine: %v", err)
	}
	irq.SetLevel(true)
	if !cpu.LineLevel(0) {
		t.Error("cpu pin not asserted")
	}
}

func TestRegistryTryNew(t *testing.T) {
	if _, err := TryNew("no-such-device"); err == nil {
		t.Error("TryNew of unregistered type succeeded")
	}
	if Registered("no-such-device") {
		t.Error("Registered reported unknown type")
	}
	if _, err := NewCPU("no-such-cpu", 0); err == nil {
		t.Error("NewCPU of unregistered type succeeded")
	}
}
