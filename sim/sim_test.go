package sim

import (
	"strings"
	"testing"

	"github.com/icache-sim/icache-sim/cache"
	"github.com/icache-sim/icache-sim/trace"
)

func runTrace(t *testing.T, src, block string, sets, ways, lineSize int) Summary {
	t.Helper()
	tf, err := trace.ParseFile(src, "t.trace")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	nb, ok := tf.Blocks[block]
	if !ok {
		t.Fatalf("no such block %q", block)
	}
	c, err := cache.New(sets, ways, lineSize)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	s, err := Run(c, block, trace.Expand(tf, nb))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return s
}

func TestDirectMappedReuse(t *testing.T) {
	// S1
	s := runTrace(t, "'x' {\n0..8..4\n0..8..4\n}\n", "x", 4, 1, 1)
	if s.Hits != 4 || s.Misses != 4 {
		t.Fatalf("got hits=%d misses=%d, want hits=4 misses=4", s.Hits, s.Misses)
	}
}

func TestConflictEviction(t *testing.T) {
	// S2
	s := runTrace(t, "'x' {\n0..8..1\n2..8..3\n4..8..5\n6..8..7\n0..8..1\n}\n", "x", 2, 2, 1)
	if s.Misses != 5 || s.Hits != 0 {
		t.Fatalf("got hits=%d misses=%d, want hits=0 misses=5", s.Hits, s.Misses)
	}
}

func TestLoopExpansionInstructionCount(t *testing.T) {
	// S3
	s := runTrace(t, "'y' {\nloop(3) {\n0x10..32..0x20\n}\n}\n", "y", 128, 4, 64)
	if s.Total() != 12 {
		t.Fatalf("got %d instructions, want 12", s.Total())
	}
}

func TestCrossLineInstructionMissesBothTimes(t *testing.T) {
	// S5: SETS=1, WAYS=1, LINE_SIZE=4. A 16-bit (2-byte) instruction at address 3
	// straddles lines 0 and 1; replaying it immediately must miss again too.
	src := "'x' {\n3..16..5\n3..16..5\n}\n"
	s := runTrace(t, src, "x", 1, 1, 4)
	if s.Hits != 0 || s.Misses != 2 {
		t.Fatalf("got hits=%d misses=%d, want hits=0 misses=2", s.Hits, s.Misses)
	}
	if s.ByteAccesses != 4 {
		t.Fatalf("got %d byte accesses, want 4", s.ByteAccesses)
	}
}

func TestByteCounterConsistency(t *testing.T) {
	// P2: hits+misses at the byte level equals total access calls.
	s := runTrace(t, "'x' {\n0..32..16\n}\n", "x", 128, 4, 64)
	if s.ByteHits+s.ByteMisses != s.ByteAccesses {
		t.Fatalf("byte hits(%d)+misses(%d) != accesses(%d)", s.ByteHits, s.ByteMisses, s.ByteAccesses)
	}
}

func TestRankingAndBaseline(t *testing.T) {
	// S6
	summaries := []Summary{
		{Name: "a", Hits: 90, Misses: 10},
		{Name: "b", Hits: 80, Misses: 20},
	}
	p := Params{CyclesHit: 1, CyclesMiss: 10, ClockMHz: 1000}
	ranked := Rank(summaries, p)

	if ranked[0].Name != "a" || ranked[1].Name != "b" {
		t.Fatalf("got ranking %v, want a then b", []string{ranked[0].Name, ranked[1].Name})
	}
	if ranked[0].TimeMicros != 0.19 {
		t.Errorf("got baseline time %.6f, want 0.19", ranked[0].TimeMicros)
	}
	if ranked[1].TimeMicros != 0.28 {
		t.Errorf("got second time %.6f, want 0.28", ranked[1].TimeMicros)
	}
	want := 47.368
	if diff := ranked[1].Relative - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("got relative %.3f, want ~%.3f", ranked[1].Relative, want)
	}
	if ranked[0].Relative != 0 {
		t.Errorf("baseline relative must be 0, got %.3f", ranked[0].Relative)
	}
}

func TestRunSimulationRendersTextReport(t *testing.T) {
	src := "compare 'x' {\n0..8..4\n}\n"
	p := Params{CyclesHit: 1, CyclesMiss: 10, ClockMHz: 1000}
	out, err := RunSimulation(src, 4, 1, 1, p, false)
	if err != nil {
		t.Fatalf("RunSimulation: %v", err)
	}
	if !strings.Contains(out, "cache: sets=4 ways=1 line_size=1") {
		t.Errorf("missing cache header: %s", out)
	}
	if !strings.Contains(out, "#1 x") {
		t.Errorf("missing ranked trace: %s", out)
	}
}

func TestRunSimulationRejectsInvalidTrace(t *testing.T) {
	if _, err := RunSimulation("not a trace {{{", 4, 1, 1, Params{CyclesHit: 1, CyclesMiss: 10, ClockMHz: 1000}, false); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRunSimulationLogAccessesPrecedesReport(t *testing.T) {
	src := "compare 'x' {\n0..8..4\n0..8..4\n}\n"
	p := Params{CyclesHit: 1, CyclesMiss: 10, ClockMHz: 1000}
	out, err := RunSimulation(src, 4, 1, 1, p, true)
	if err != nil {
		t.Fatalf("RunSimulation: %v", err)
	}
	if !strings.Contains(out, "x 0x0 miss") {
		t.Errorf("missing per-access miss line: %s", out)
	}
	if !strings.Contains(out, "x 0x0 hit") {
		t.Errorf("missing per-access hit line on replay: %s", out)
	}
	if !strings.Contains(out, "cache: sets=4") {
		t.Errorf("report text must still follow the access log: %s", out)
	}
}

func TestRunSimulationWithProgressAndResult(t *testing.T) {
	src := "compare 'x' {\n0..8..4\n}\ncompare 'y' {\n0..8..4\n}\n"
	p := Params{CyclesHit: 1, CyclesMiss: 10, ClockMHz: 1000}

	var progressed []string
	var result []Ranked
	_, err := RunSimulation(src, 4, 1, 1, p, false,
		WithProgress(func(name string, hits, misses uint64) { progressed = append(progressed, name) }),
		WithResult(func(ranked []Ranked) { result = ranked }))
	if err != nil {
		t.Fatalf("RunSimulation: %v", err)
	}
	if len(progressed) != 2 {
		t.Fatalf("got %d progress calls, want 2", len(progressed))
	}
	if len(result) != 2 {
		t.Fatalf("got %d ranked results, want 2", len(result))
	}
}

func TestSwitchDeterminismAcrossRuns(t *testing.T) {
	// S4
	src := "'z' {\nloop(10) {\nswitch:\n(1): {\n0..8..1\n}\n(1): {\n1..8..2\n}\nendswitch\n}\n}\n"
	first := runTrace(t, src, "z", 128, 4, 64)
	second := runTrace(t, src, "z", 128, 4, 64)
	if first != second {
		t.Fatalf("expansions diverged across runs: %+v vs %+v", first, second)
	}
}
