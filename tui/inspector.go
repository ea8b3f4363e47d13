// Package tui implements an optional interactive cache/trace inspector: a
// terminal UI that steps through one compare block's expanded instruction
// stream one instruction at a time, showing the live per-set LRU order and
// the running hit/miss tally.
//
// Grounded on debugger/tui.go's NewTUI/initializeViews/buildLayout/
// setupKeyBindings structure and its Source/Register/Memory/Stack panel
// layout, repurposed here into Trace/Cache-Sets/Summary panels. Uses
// github.com/gdamore/tcell/v2 and github.com/rivo/tview exactly as the
// teacher does.
package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/icache-sim/icache-sim/cache"
	"github.com/icache-sim/icache-sim/trace"
)

// Inspector is the interactive stepper.
type Inspector struct {
	App  *tview.Application
	Flex *tview.Flex

	TraceView   *tview.TextView
	SetsView    *tview.TextView
	SummaryView *tview.TextView

	cache  *cache.Cache
	instrs []trace.Instruction
	pos    int

	hits, misses uint64
}

// NewInspector creates an inspector over an already-expanded instruction
// stream, replayed against c one instruction at a time.
func NewInspector(c *cache.Cache, instrs []trace.Instruction) *Inspector {
	insp := &Inspector{
		App:    tview.NewApplication(),
		cache:  c,
		instrs: instrs,
	}

	insp.initializeViews()
	insp.buildLayout()
	insp.setupKeyBindings()
	insp.refresh()

	return insp
}

func (insp *Inspector) initializeViews() {
	insp.TraceView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	insp.TraceView.SetBorder(true).SetTitle(" Trace ")

	insp.SetsView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	insp.SetsView.SetBorder(true).SetTitle(" Cache Sets ")

	insp.SummaryView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	insp.SummaryView.SetBorder(true).SetTitle(" Summary ")
}

func (insp *Inspector) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(insp.TraceView, 0, 2, false).
		AddItem(insp.SetsView, 0, 1, false)

	insp.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 4, false).
		AddItem(insp.SummaryView, 5, 0, false)
}

func (insp *Inspector) setupKeyBindings() {
	insp.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyRight || event.Rune() == 'n':
			insp.step()
			return nil
		case event.Rune() == 'r':
			insp.runToEnd()
			return nil
		case event.Key() == tcell.KeyCtrlC || event.Rune() == 'q':
			insp.App.Stop()
			return nil
		}
		return event
	})
}

// step replays the next instruction, if any remain.
func (insp *Inspector) step() {
	if insp.pos >= len(insp.instrs) {
		return
	}
	instr := insp.instrs[insp.pos]
	insp.replay(instr)
	insp.pos++
	insp.refresh()
}

// runToEnd replays every remaining instruction.
func (insp *Inspector) runToEnd() {
	for insp.pos < len(insp.instrs) {
		insp.replay(insp.instrs[insp.pos])
		insp.pos++
	}
	insp.refresh()
}

func (insp *Inspector) replay(instr trace.Instruction) {
	allHit := true
	n := instr.Bytes()
	for i := uint64(0); i < n; i++ {
		if !insp.cache.Access(instr.Address + i).Hit {
			allHit = false
		}
	}
	if allHit {
		insp.hits++
	} else {
		insp.misses++
	}
}

func (insp *Inspector) refresh() {
	insp.updateTraceView()
	insp.updateSetsView()
	insp.updateSummaryView()
	insp.App.Draw()
}

func (insp *Inspector) updateTraceView() {
	insp.TraceView.Clear()
	var b strings.Builder
	start := insp.pos - 10
	if start < 0 {
		start = 0
	}
	end := insp.pos + 10
	if end > len(insp.instrs) {
		end = len(insp.instrs)
	}
	for i := start; i < end; i++ {
		marker := "  "
		if i == insp.pos {
			marker = "[yellow]>[white] "
		}
		fmt.Fprintf(&b, "%s%s\n", marker, insp.instrs[i])
	}
	insp.TraceView.SetText(b.String())
}

func (insp *Inspector) updateSetsView() {
	insp.SetsView.Clear()
	var b strings.Builder
	n := insp.cache.Sets()
	shown := n
	if shown > 16 {
		shown = 16
	}
	for i := 0; i < shown; i++ {
		fmt.Fprintf(&b, "set %d: ", i)
		for _, line := range insp.cache.SetState(i) {
			if line.Valid {
				fmt.Fprintf(&b, "[%#x] ", line.Tag)
			} else {
				b.WriteString("[-] ")
			}
		}
		b.WriteString("\n")
	}
	if n > shown {
		fmt.Fprintf(&b, "... (%d more sets)\n", n-shown)
	}
	insp.SetsView.SetText(b.String())
}

func (insp *Inspector) updateSummaryView() {
	insp.SummaryView.Clear()
	total := insp.hits + insp.misses
	var hitPct float64
	if total > 0 {
		hitPct = float64(insp.hits) / float64(total) * 100
	}
	fmt.Fprintf(insp.SummaryView, "instruction %d/%d  hits=%d misses=%d hit%%=%.3f\n[gray]n/Right: step  r: run to end  q: quit[white]",
		insp.pos, len(insp.instrs), insp.hits, insp.misses, hitPct)
}

// Run starts the inspector's event loop; it blocks until the user quits.
func (insp *Inspector) Run() error {
	return insp.App.SetRoot(insp.Flex, true).SetFocus(insp.Flex).Run()
}
