// Command icachesim replays a memory-access trace through a parametric
// set-associative LRU cache and reports ranked hit/miss performance.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/icache-sim/icache-sim/cache"
	"github.com/icache-sim/icache-sim/config"
	"github.com/icache-sim/icache-sim/desktop"
	"github.com/icache-sim/icache-sim/report"
	"github.com/icache-sim/icache-sim/sim"
	"github.com/icache-sim/icache-sim/trace"
	"github.com/icache-sim/icache-sim/tui"
)

// Version information — can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to a TOML config file (default: platform config path)")

		sets     = flag.Int("sets", 0, "Override cache set count (0 = use config)")
		ways     = flag.Int("ways", 0, "Override cache way count (0 = use config)")
		lineSize = flag.Int("line-size", 0, "Override cache line size in bytes (0 = use config)")

		cyclesHit  = flag.Uint64("cycles-hit", 0, "Override hit cost in cycles (0 = use config)")
		cyclesMiss = flag.Uint64("cycles-miss", 0, "Override miss cost in cycles (0 = use config)")
		clockMHz   = flag.Uint64("clock-mhz", 0, "Override clock rate in MHz (0 = use config)")

		dumpTrace   = flag.Bool("trace", false, "Dump the expanded instruction stream before replay")
		jsonOut     = flag.Bool("json", false, "Emit a machine-readable JSON report instead of text")
		logAccesses = flag.Bool("log-accesses", false, "Precede the report with a per-access hit/miss log")

		apiServer = flag.Bool("api-server", false, "Start HTTP API server mode (no trace file required)")
		apiPort   = flag.Int("port", 8080, "API server port (used with -api-server)")

		interactive = flag.Bool("interactive", false, "Open an interactive terminal inspector for the first compare block")
		gui         = flag.Bool("gui", false, "Open a desktop window showing the ranked report")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("icache-sim %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *sets, *ways, *lineSize, *cyclesHit, *cyclesMiss, *clockMHz)

	if *apiServer {
		runAPIServer(*apiPort, cfg, Version, Commit, Date)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	tracePath := flag.Arg(0)
	source, err := os.ReadFile(tracePath) // #nosec G304 -- user-specified trace file path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	params := sim.Params{CyclesHit: cfg.Cost.CyclesHit, CyclesMiss: cfg.Cost.CyclesMiss, ClockMHz: cfg.Cost.ClockMHz}

	if *interactive {
		tf, err := trace.ParseFile(string(source), tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error:\n%v\n", err)
			os.Exit(1)
		}
		blocks := tf.CompareBlocks()
		if len(blocks) == 0 {
			fmt.Fprintln(os.Stderr, "Error: trace file declares no compare blocks")
			os.Exit(1)
		}
		c, err := cache.New(cfg.Cache.Sets, cfg.Cache.Ways, cfg.Cache.LineSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(1)
		}

		nb := blocks[0]
		var instrs []trace.Instruction
		for instr, err := range trace.Expand(tf, nb) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Expansion error: %v\n", err)
				os.Exit(1)
			}
			instrs = append(instrs, instr)
		}
		insp := tui.NewInspector(c, instrs)
		if err := insp.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Inspector error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *dumpTrace {
		tf, err := trace.ParseFile(string(source), tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error:\n%v\n", err)
			os.Exit(1)
		}
		blocks := tf.CompareBlocks()
		if len(blocks) == 0 {
			fmt.Fprintln(os.Stderr, "Error: trace file declares no compare blocks")
			os.Exit(1)
		}
		for _, nb := range blocks {
			fmt.Printf("-- %s --\n", nb.Name)
			for instr, err := range trace.Expand(tf, nb) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "Expansion error: %v\n", err)
					os.Exit(1)
				}
				fmt.Println(instr)
			}
		}
	}

	if *gui {
		tf, err := trace.ParseFile(string(source), tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error:\n%v\n", err)
			os.Exit(1)
		}
		blocks := tf.CompareBlocks()
		if len(blocks) == 0 {
			fmt.Fprintln(os.Stderr, "Error: trace file declares no compare blocks")
			os.Exit(1)
		}
		c, err := cache.New(cfg.Cache.Sets, cfg.Cache.Ways, cfg.Cache.LineSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(1)
		}

		summaries := make([]sim.Summary, len(blocks))
		for i, nb := range blocks {
			s, err := sim.Run(c, nb.Name, trace.Expand(tf, nb))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error simulating %q: %v\n", nb.Name, err)
				os.Exit(1)
			}
			summaries[i] = s
		}
		ranked := sim.Rank(summaries, params)

		rerun := func() ([]sim.Ranked, error) {
			var result []sim.Ranked
			_, err := sim.RunSimulation(string(source), cfg.Cache.Sets, cfg.Cache.Ways, cfg.Cache.LineSize, params, false,
				sim.WithResult(func(r []sim.Ranked) { result = r }))
			return result, err
		}
		desktop.NewViewer(ranked, rerun).Run()
		return
	}

	opts := report.DefaultOptions()
	opts.Decimals = cfg.Report.Decimals
	if *jsonOut {
		opts.Style = report.StyleJSON
	}

	out, err := sim.RunSimulation(string(source), cfg.Cache.Sets, cfg.Cache.Ways, cfg.Cache.LineSize, params, *logAccesses,
		sim.WithReportOptions(opts))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func applyOverrides(cfg *config.Config, sets, ways, lineSize int, cyclesHit, cyclesMiss, clockMHz uint64) {
	if sets != 0 {
		cfg.Cache.Sets = sets
	}
	if ways != 0 {
		cfg.Cache.Ways = ways
	}
	if lineSize != 0 {
		cfg.Cache.LineSize = lineSize
	}
	if cyclesHit != 0 {
		cfg.Cost.CyclesHit = cyclesHit
	}
	if cyclesMiss != 0 {
		cfg.Cost.CyclesMiss = cyclesMiss
	}
	if clockMHz != 0 {
		cfg.Cost.ClockMHz = clockMHz
	}
}

func printHelp() {
	fmt.Printf(`icache-sim %s

Usage: icache-sim [options] <trace-file>
       icache-sim -api-server [-port N]

Options:
  -version              Show version information
  -config PATH           Path to a TOML config file (default: platform config path)
  -sets N                Override cache set count
  -ways N                Override cache way count
  -line-size N           Override cache line size in bytes
  -cycles-hit N          Override hit cost in cycles
  -cycles-miss N         Override miss cost in cycles
  -clock-mhz N           Override clock rate in MHz
  -trace                 Dump the expanded instruction stream before replay
  -log-accesses          Precede the report with a per-access hit/miss log
  -json                  Emit a machine-readable JSON report
  -api-server            Start HTTP API server mode
  -port N                API server port (default: 8080, used with -api-server)
  -interactive           Open an interactive terminal inspector for the first compare block
  -gui                   Open a desktop window showing the ranked report

Examples:
  icache-sim workload.trace
  icache-sim -sets 256 -ways 8 -json workload.trace
  icache-sim -api-server -port 3000
`, Version)
}
