package trace

import "testing"

func TestValidateDuplicateBlockName(t *testing.T) {
	_, err := ParseFile("'main' {\n0x0..32..0x4\n}\n'main' {\n0x0..32..0x4\n}\n", "t.trace")
	if err == nil {
		t.Fatal("expected duplicate-block error")
	}
	te := err.(*Error)
	if te.Kind != ErrDuplicateBlock {
		t.Errorf("got kind %s, want %s", te.Kind, ErrDuplicateBlock)
	}
}

func TestValidateUnknownCall(t *testing.T) {
	_, err := ParseFile("'main' {\nmissing()\n}\n", "t.trace")
	if err == nil {
		t.Fatal("expected unknown-call error")
	}
	te := err.(*Error)
	if te.Kind != ErrUnknownCall {
		t.Errorf("got kind %s, want %s", te.Kind, ErrUnknownCall)
	}
}

func TestValidateDirectCallCycle(t *testing.T) {
	_, err := ParseFile("'a' {\na()\n}\n", "t.trace")
	if err == nil {
		t.Fatal("expected call-cycle error for self-recursive block")
	}
	te := err.(*Error)
	if te.Kind != ErrCallCycle {
		t.Errorf("got kind %s, want %s", te.Kind, ErrCallCycle)
	}
}

func TestValidateIndirectCallCycle(t *testing.T) {
	src := "'a' {\nb()\n}\n'b' {\na()\n}\n"
	_, err := ParseFile(src, "t.trace")
	if err == nil {
		t.Fatal("expected call-cycle error for mutually recursive blocks")
	}
	te := err.(*Error)
	if te.Kind != ErrCallCycle {
		t.Errorf("got kind %s, want %s", te.Kind, ErrCallCycle)
	}
}

func TestValidateNonCyclicSharedCallIsFine(t *testing.T) {
	// 'a' and 'b' both calling 'shared' is legitimate reuse, not a cycle.
	src := "'a' {\nshared()\n}\n'b' {\nshared()\n}\n'shared' {\n0x0..32..0x4\n}\n"
	tf, err := ParseFile(src, "t.trace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tf.Blocks) != 3 {
		t.Errorf("got %d blocks, want 3", len(tf.Blocks))
	}
}

func TestValidateRangeStartNotLessThanEnd(t *testing.T) {
	_, err := ParseFile("'a' {\n0x10..32..0x10\n}\n", "t.trace")
	if err == nil {
		t.Fatal("expected malformed-range error")
	}
}

func TestValidateRangeLengthNotMultipleOf8(t *testing.T) {
	_, err := ParseFile("'a' {\n0x0..3..0x10\n}\n", "t.trace")
	if err == nil {
		t.Fatal("expected malformed-range error for non-byte-multiple length")
	}
}

func TestValidateRangeSpanNotDivisible(t *testing.T) {
	_, err := ParseFile("'a' {\n0x0..16..0x5\n}\n", "t.trace")
	if err == nil {
		t.Fatal("expected malformed-range error for indivisible span")
	}
}

func TestCompareBlocksFiltersOnFlag(t *testing.T) {
	src := "'base' {\n0x0..32..0x4\n}\ncompare 'v1' {\n0x0..32..0x4\n}\ncompare 'v2' {\n0x0..32..0x4\n}\n"
	tf, err := ParseFile(src, "t.trace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmp := tf.CompareBlocks()
	if len(cmp) != 2 {
		t.Fatalf("got %d compare blocks, want 2", len(cmp))
	}
}
