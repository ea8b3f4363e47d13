// Package report renders a ranked simulation outcome as either human-readable
// text or JSON, for the CLI's -json flag and the HTTP API's JSON response body.
//
// Grounded on tools/format.go's Formatter shape: an options struct selecting a
// style, paired with a Formatter that accumulates output into a
// strings.Builder and exposes a single String() result. report takes plain
// wire-shaped inputs (CostParams, RankedEntry) rather than importing package
// sim, so sim is free to import report back to render its own embeddable
// report text.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Style selects the rendering the Formatter produces.
type Style int

const (
	StyleText Style = iota
	StyleJSON
)

// Options controls Formatter behavior.
type Options struct {
	Style    Style
	Decimals int // fractional digits for percentages and microsecond times
}

// DefaultOptions matches spec.md §4.5's reporting contract: text output,
// percentages to 3 decimal places.
func DefaultOptions() Options {
	return Options{Style: StyleText, Decimals: 3}
}

// Geometry is the cache configuration echoed in the report header.
type Geometry struct {
	Sets     int
	Ways     int
	LineSize int
}

// CostParams is the cost model echoed in the report header and carried
// through to the JSON report's "cost" object.
type CostParams struct {
	CyclesHit  uint64
	CyclesMiss uint64
	ClockMHz   uint64
}

// RankedEntry is one ranked trace's outcome, in the plain shape Formatter
// renders. Callers (package sim's RunSimulation) compute these from their
// own ranking types.
type RankedEntry struct {
	Name        string
	Hits        uint64
	Misses      uint64
	HitPercent  float64
	MissPercent float64
	TimeMicros  float64
	Relative    float64 // percent slower than the baseline; 0 for the baseline itself
}

// Formatter renders a ranked report for one simulation run.
type Formatter struct {
	options  Options
	geometry Geometry
	params   CostParams
	output   strings.Builder
}

// NewFormatter creates a Formatter for the given cache geometry and cost model.
func NewFormatter(options Options, geometry Geometry, params CostParams) *Formatter {
	return &Formatter{options: options, geometry: geometry, params: params}
}

// Format renders ranked into either text or JSON according to f's options.
func (f *Formatter) Format(ranked []RankedEntry) (string, error) {
	switch f.options.Style {
	case StyleJSON:
		return f.formatJSON(ranked)
	default:
		return f.formatText(ranked), nil
	}
}

func (f *Formatter) formatText(ranked []RankedEntry) string {
	f.output.Reset()
	decimals := f.options.Decimals

	fmt.Fprintf(&f.output, "cache: sets=%d ways=%d line_size=%d\n", f.geometry.Sets, f.geometry.Ways, f.geometry.LineSize)
	fmt.Fprintf(&f.output, "cost: cycles_hit=%d cycles_miss=%d clock_mhz=%d\n\n",
		f.params.CyclesHit, f.params.CyclesMiss, f.params.ClockMHz)

	for rank, r := range ranked {
		fmt.Fprintf(&f.output, "#%d %s\n", rank+1, r.Name)
		fmt.Fprintf(&f.output, "  hits=%d misses=%d hit%%=%.*f miss%%=%.*f\n",
			r.Hits, r.Misses, decimals, r.HitPercent, decimals, r.MissPercent)
		fmt.Fprintf(&f.output, "  time=%.*fus", decimals, r.TimeMicros)
		if rank == 0 {
			f.output.WriteString(" (baseline)\n")
		} else {
			fmt.Fprintf(&f.output, " relative=+%.*f%%\n", decimals, r.Relative)
		}
	}
	return f.output.String()
}

// jsonSummary is the wire shape of one ranked trace in the JSON report.
type jsonSummary struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitPercent  float64 `json:"hit_percent"`
	MissPercent float64 `json:"miss_percent"`
	TimeMicros  float64 `json:"time_micros"`
	Relative    float64 `json:"relative_percent"`
	Baseline    bool    `json:"baseline"`
}

type jsonReport struct {
	Cache     Geometry      `json:"cache"`
	Cost      CostParams    `json:"cost"`
	Summaries []jsonSummary `json:"summaries"`
}

func (f *Formatter) formatJSON(ranked []RankedEntry) (string, error) {
	report := jsonReport{Cache: f.geometry, Cost: f.params}
	for rank, r := range ranked {
		report.Summaries = append(report.Summaries, jsonSummary{
			Rank:        rank + 1,
			Name:        r.Name,
			Hits:        r.Hits,
			Misses:      r.Misses,
			HitPercent:  r.HitPercent,
			MissPercent: r.MissPercent,
			TimeMicros:  r.TimeMicros,
			Relative:    r.Relative,
			Baseline:    rank == 0,
		})
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(b), nil
}
