// Package sim folds an expanded trace through a cache instance into a ranked
// performance report. It is the component that actually drives the pipeline:
// trace.Expand produces instructions, cache.Cache.Access consumes bytes of
// them, and sim tallies and ranks the result.
//
// Grounded on the teacher's PerformanceStatistics (vm/statistics.go): a small
// plain struct accumulated over a run via Record*-style methods, then reported
// via a dedicated formatting pass — generalized here from ARM instruction/branch
// counters to cache hit/miss counters, and from one VM's single run to several
// comparison traces ranked against a shared baseline.
package sim

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/icache-sim/icache-sim/cache"
	"github.com/icache-sim/icache-sim/report"
	"github.com/icache-sim/icache-sim/trace"
)

// Params is the cost model used to convert hit/miss counts into modelled time.
type Params struct {
	CyclesHit  uint64
	CyclesMiss uint64
	ClockMHz   uint64
}

// Summary is one comparison trace's outcome: instruction-level hit/miss counts
// (one increment per instruction, per spec, regardless of how many bytes it spans).
type Summary struct {
	Name   string
	Hits   uint64
	Misses uint64

	// ByteAccesses counts every individual cache.Access call issued while
	// folding this trace — kept alongside Hits/Misses to verify internally
	// that hits+misses-at-the-byte-level equals the number of access calls,
	// independent of how instructions later aggregate those calls.
	ByteAccesses uint64
	ByteHits     uint64
	ByteMisses   uint64
}

// Total returns the number of instructions folded into this summary.
func (s Summary) Total() uint64 { return s.Hits + s.Misses }

// HitPercent and MissPercent report the instruction-level hit/miss ratio.
func (s Summary) HitPercent() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Total()) * 100
}

func (s Summary) MissPercent() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Total()) * 100
}

// ModelledTimeMicros computes (hits*cyclesHit + misses*cyclesMiss) / clockMHz, in
// microseconds, per spec.md §4.5's ranking formula.
func (s Summary) ModelledTimeMicros(p Params) float64 {
	cycles := float64(s.Hits)*float64(p.CyclesHit) + float64(s.Misses)*float64(p.CyclesMiss)
	return cycles / float64(p.ClockMHz)
}

// Run folds one expanded trace through c, resetting c first so that traces
// sharing a single cache instance never leak state into one another
// (spec.md §5).
func Run(c *cache.Cache, name string, instrs iter.Seq2[trace.Instruction, error]) (Summary, error) {
	return fold(c, name, instrs, nil)
}

// fold is Run's implementation, with an optional per-byte-access hook so
// RunSimulation can produce a per-access log without duplicating this loop.
func fold(c *cache.Cache, name string, instrs iter.Seq2[trace.Instruction, error], onAccess func(addr uint64, hit bool)) (Summary, error) {
	c.Reset()
	summary := Summary{Name: name}

	for instr, err := range instrs {
		if err != nil {
			return Summary{}, err
		}

		n := instr.Bytes()
		allHit := true
		for i := uint64(0); i < n; i++ {
			out := c.Access(instr.Address + i)
			summary.ByteAccesses++
			if out.Hit {
				summary.ByteHits++
			} else {
				summary.ByteMisses++
				allHit = false
			}
			if onAccess != nil {
				onAccess(instr.Address+i, out.Hit)
			}
		}

		if allHit {
			summary.Hits++
		} else {
			summary.Misses++
		}
	}

	return summary, nil
}

// Ranked is one Summary placed in ranking order, with its modelled time and its
// time relative to the fastest (baseline) summary.
type Ranked struct {
	Summary
	TimeMicros float64
	Relative   float64 // percent slower than the baseline; 0 for the baseline itself
}

// Rank orders summaries ascending by modelled time under p and computes each
// one's time relative to the fastest (spec.md §4.5's ranking step).
func Rank(summaries []Summary, p Params) []Ranked {
	ranked := make([]Ranked, len(summaries))
	for i, s := range summaries {
		ranked[i] = Ranked{Summary: s, TimeMicros: s.ModelledTimeMicros(p)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].TimeMicros < ranked[j].TimeMicros })

	if len(ranked) == 0 {
		return ranked
	}
	baseline := ranked[0].TimeMicros
	for i := range ranked {
		if baseline == 0 {
			ranked[i].Relative = 0
			continue
		}
		ranked[i].Relative = (ranked[i].TimeMicros - baseline) / baseline * 100
	}
	return ranked
}

// ReportEntries converts ranked summaries into report.Formatter's plain wire
// shape, keeping package report free of any dependency back on sim.
func ReportEntries(ranked []Ranked) []report.RankedEntry {
	entries := make([]report.RankedEntry, len(ranked))
	for i, r := range ranked {
		entries[i] = report.RankedEntry{
			Name:        r.Name,
			Hits:        r.Hits,
			Misses:      r.Misses,
			HitPercent:  r.HitPercent(),
			MissPercent: r.MissPercent(),
			TimeMicros:  r.TimeMicros,
			Relative:    r.Relative,
		}
	}
	return entries
}

// runOptions holds RunSimulation's optional hooks, set through the With*
// functions below. RunSimulation starts from report.DefaultOptions with no
// progress or result callbacks, so with no Option it renders the plain text
// report.
type runOptions struct {
	reportOptions report.Options
	onProgress    func(name string, hits, misses uint64)
	onResult      func(ranked []Ranked)
}

// Option configures one optional RunSimulation behavior.
type Option func(*runOptions)

// WithReportOptions overrides the default text rendering, e.g. to select
// report.StyleJSON or a non-default decimal precision.
func WithReportOptions(o report.Options) Option {
	return func(ro *runOptions) { ro.reportOptions = o }
}

// WithProgress calls f once per compare block, after it finishes folding and
// before the next one starts, so a long-running caller (the HTTP API) can
// stream progress without re-deriving this function's pipeline.
func WithProgress(f func(name string, hits, misses uint64)) Option {
	return func(ro *runOptions) { ro.onProgress = f }
}

// WithResult calls f with the final ranked summaries, for a caller (the -gui
// viewer) that needs the structured ranking alongside the rendered text.
func WithResult(f func(ranked []Ranked)) Option {
	return func(ro *runOptions) { ro.onResult = f }
}

// RunSimulation is the embeddable entry point spec.md §6 names:
// run_simulation(trace_text, cycles_hit, cycles_miss, log_accesses) ->
// report_text | error_text. It parses and validates traceText, simulates
// every compare block under the given cache geometry and cost model, and
// renders a ranked report via package report. When logAccesses is set, the
// returned text is preceded by one line per byte-level cache access, tagged
// hit or miss, mirroring the -trace flag's instruction dump but at the
// granularity cache.Access actually operates on.
func RunSimulation(traceText string, sets, ways, lineSize int, p Params, logAccesses bool, opts ...Option) (string, error) {
	ro := runOptions{reportOptions: report.DefaultOptions()}
	for _, opt := range opts {
		opt(&ro)
	}

	tf, err := trace.ParseFile(traceText, "trace")
	if err != nil {
		return "", err
	}
	blocks := tf.CompareBlocks()
	if len(blocks) == 0 {
		return "", fmt.Errorf("trace file declares no compare blocks")
	}

	c, err := cache.New(sets, ways, lineSize)
	if err != nil {
		return "", err
	}

	var accessLog strings.Builder
	summaries := make([]Summary, len(blocks))
	for i, nb := range blocks {
		var onAccess func(addr uint64, hit bool)
		if logAccesses {
			name := nb.Name
			onAccess = func(addr uint64, hit bool) {
				status := "hit"
				if !hit {
					status = "miss"
				}
				fmt.Fprintf(&accessLog, "%s 0x%x %s\n", name, addr, status)
			}
		}

		s, err := fold(c, nb.Name, trace.Expand(tf, nb), onAccess)
		if err != nil {
			return "", fmt.Errorf("trace %q: %w", nb.Name, err)
		}
		summaries[i] = s
		if ro.onProgress != nil {
			ro.onProgress(nb.Name, s.Hits, s.Misses)
		}
	}

	ranked := Rank(summaries, p)
	if ro.onResult != nil {
		ro.onResult(ranked)
	}

	formatter := report.NewFormatter(ro.reportOptions, report.Geometry{Sets: sets, Ways: ways, LineSize: lineSize},
		report.CostParams{CyclesHit: p.CyclesHit, CyclesMiss: p.CyclesMiss, ClockMHz: p.ClockMHz})
	text, err := formatter.Format(ReportEntries(ranked))
	if err != nil {
		return "", err
	}

	if logAccesses {
		return accessLog.String() + "\n" + text, nil
	}
	return text, nil
}
