// Package desktop implements an optional minimal desktop viewer for a
// finished ranked report: one fyne window showing a text grid per comparison
// trace plus a toolbar to re-run the simulation.
//
// Grounded on debugger/gui.go's widget-grid layout (one widget.TextGrid panel
// per view, plus a widget.Toolbar), repurposed here from a live VM debugger
// into a static report viewer. Uses fyne.io/fyne/v2, fyne.io/fyne/v2/app,
// fyne.io/fyne/v2/container, fyne.io/fyne/v2/theme, and fyne.io/fyne/v2/widget
// exactly as the teacher does.
package desktop

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/icache-sim/icache-sim/sim"
)

// Viewer is a single-window display of a ranked report, with a toolbar
// action to re-run the simulation via a caller-supplied callback.
type Viewer struct {
	App    fyne.App
	Window fyne.Window

	geometryLabel *widget.Label
	summaryGrids  *fyne.Container
	toolbar       *widget.Toolbar

	onRerun func() ([]sim.Ranked, error)
}

// NewViewer creates a viewer window showing ranked, with rerun invoked when
// the toolbar's refresh action is used.
func NewViewer(ranked []sim.Ranked, onRerun func() ([]sim.Ranked, error)) *Viewer {
	myApp := app.New()
	myWindow := myApp.NewWindow("icache-sim — ranked report")

	v := &Viewer{
		App:     myApp,
		Window:  myWindow,
		onRerun: onRerun,
	}

	v.initializeViews()
	v.buildLayout()
	v.ShowReport(ranked)

	myWindow.Resize(fyne.NewSize(900, 650))

	return v
}

func (v *Viewer) initializeViews() {
	v.geometryLabel = widget.NewLabel("")
	v.summaryGrids = container.NewVBox()
}

func (v *Viewer) buildLayout() {
	scroll := container.NewVScroll(v.summaryGrids)

	content := container.NewBorder(
		container.NewVBox(v.geometryLabel, widget.NewSeparator()),
		nil, nil, nil,
		scroll,
	)

	v.Window.SetContent(container.NewBorder(v.toolbarContainer(), nil, nil, nil, content))
}

func (v *Viewer) toolbarContainer() fyne.CanvasObject {
	v.toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			if v.onRerun == nil {
				return
			}
			ranked, err := v.onRerun()
			if err != nil {
				v.summaryGrids.Objects = []fyne.CanvasObject{widget.NewLabel(fmt.Sprintf("error: %v", err))}
				v.summaryGrids.Refresh()
				return
			}
			v.ShowReport(ranked)
		}),
	)
	return v.toolbar
}

// ShowReport replaces the displayed report with ranked.
func (v *Viewer) ShowReport(ranked []sim.Ranked) {
	objects := make([]fyne.CanvasObject, 0, len(ranked))
	for rank, r := range ranked {
		grid := widget.NewTextGrid()
		grid.SetText(formatSummary(rank, r))
		objects = append(objects, grid)
	}
	v.summaryGrids.Objects = objects
	v.summaryGrids.Refresh()
}

func formatSummary(rank int, r sim.Ranked) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s\n", rank+1, r.Name)
	fmt.Fprintf(&b, "  hits=%d misses=%d hit%%=%.3f miss%%=%.3f\n", r.Hits, r.Misses, r.HitPercent(), r.MissPercent())
	fmt.Fprintf(&b, "  time=%.3fus", r.TimeMicros)
	if rank == 0 {
		b.WriteString(" (baseline)\n")
	} else {
		fmt.Fprintf(&b, " relative=+%.3f%%\n", r.Relative)
	}
	return b.String()
}

// Run shows the window and blocks until it is closed.
func (v *Viewer) Run() {
	v.Window.ShowAndRun()
}
