package trace

import "testing"

func expandAll(t *testing.T, src, block string) []Instruction {
	t.Helper()
	tf, err := ParseFile(src, "t.trace")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	nb, ok := tf.Blocks[block]
	if !ok {
		t.Fatalf("no such block %q", block)
	}
	var out []Instruction
	for instr, err := range Expand(tf, nb) {
		if err != nil {
			t.Fatalf("expansion error: %v", err)
		}
		out = append(out, instr)
	}
	return out
}

func TestExpandSimpleRange(t *testing.T) {
	instrs := expandAll(t, "'a' {\n0x0..32..0x10\n}\n", "a")
	want := []uint64{0x0, 0x4, 0x8, 0xc}
	if len(instrs) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(instrs), len(want))
	}
	for i, w := range want {
		if instrs[i].Address != w || instrs[i].LengthBits != 32 {
			t.Errorf("instr %d: got %+v, want addr %#x len 32", i, instrs[i], w)
		}
	}
}

func TestExpandBlockCallInlines(t *testing.T) {
	src := "'main' {\nsetup()\n0x10..32..0x14\n}\n'setup' {\n0x0..32..0x4\n}\n"
	instrs := expandAll(t, src, "main")
	want := []uint64{0x0, 0x10}
	if len(instrs) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instrs))
	}
	for i, w := range want {
		if instrs[i].Address != w {
			t.Errorf("instr %d: got %#x, want %#x", i, instrs[i].Address, w)
		}
	}
}

func TestExpandLoopRepeatsInOrder(t *testing.T) {
	instrs := expandAll(t, "'a' {\nloop(3) {\n0x0..32..0x8\n}\n}\n", "a")
	want := []uint64{0x0, 0x4, 0x0, 0x4, 0x0, 0x4}
	if len(instrs) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(instrs), len(want))
	}
	for i, w := range want {
		if instrs[i].Address != w {
			t.Errorf("instr %d: got %#x, want %#x", i, instrs[i].Address, w)
		}
	}
}

func TestExpandNestedLoopPreservesOrder(t *testing.T) {
	src := "'a' {\nloop(2) {\n0x0..32..0x4\nloop(2) {\n0x10..32..0x14\n}\n}\n}\n"
	instrs := expandAll(t, src, "a")
	want := []uint64{0x0, 0x10, 0x10, 0x0, 0x10, 0x10}
	if len(instrs) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(instrs), len(want))
	}
	for i, w := range want {
		if instrs[i].Address != w {
			t.Errorf("instr %d: got %#x, want %#x", i, instrs[i].Address, w)
		}
	}
}

func TestExpandDeterministicAcrossRuns(t *testing.T) {
	src := "'a' {\nloop(20) {\nswitch:\n(1): {\n0x0..32..0x4\n}\n(3): {\n0x10..32..0x14\n}\nendswitch\n}\n}\n"
	first := expandAll(t, src, "a")
	second := expandAll(t, src, "a")
	if len(first) != len(second) {
		t.Fatalf("got %d vs %d instructions across runs", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("instr %d diverged: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestExpandZeroCountLoopEmitsNothing(t *testing.T) {
	instrs := expandAll(t, "'a' {\nloop(0) {\n0x0..32..0x4\n}\n}\n", "a")
	if len(instrs) != 0 {
		t.Fatalf("got %d instructions, want 0", len(instrs))
	}
}

func TestWeightedSelectZeroTotalPicksFirstSorted(t *testing.T) {
	// Regression for the spec's resolved zero-weight edge case: all-zero weights
	// must deterministically select the first case after stable sort, without
	// consuming randomness.
	cases := []SwitchCase{{Weight: 0}, {Weight: 0}, {Weight: 0}}
	for trial := 0; trial < 5; trial++ {
		got := weightedSelect(nil, cases)
		if got != 0 {
			t.Fatalf("trial %d: got case %d, want 0", trial, got)
		}
	}
}
