package api

import (
	"fmt"
	"net/http"

	"github.com/icache-sim/icache-sim/sim"
)

// handleSimulate handles POST /api/v1/simulate: it delegates to
// sim.RunSimulation for the whole parse/cache/run/rank/format pipeline, and
// forwards that call's progress and outcome to any subscribed WebSocket
// clients under the run's ID.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SimulateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TraceText == "" {
		writeError(w, http.StatusBadRequest, "trace_text is required")
		return
	}

	run, err := s.runs.Start()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start run")
		return
	}
	debugLog("run %s: simulate request received (trace bytes=%d)", run.ID, len(req.TraceText))

	sets, ways, lineSize := s.defaultCache.Sets, s.defaultCache.Ways, s.defaultCache.LineSize
	if req.Cache.Sets != 0 {
		sets = req.Cache.Sets
	}
	if req.Cache.Ways != 0 {
		ways = req.Cache.Ways
	}
	if req.Cache.LineSize != 0 {
		lineSize = req.Cache.LineSize
	}

	params := s.defaultParams
	if req.CyclesHit != 0 {
		params.CyclesHit = req.CyclesHit
	}
	if req.CyclesMiss != 0 {
		params.CyclesMiss = req.CyclesMiss
	}
	if req.ClockMHz != 0 {
		params.ClockMHz = req.ClockMHz
	}

	var ranked []sim.Ranked
	text, err := sim.RunSimulation(req.TraceText, sets, ways, lineSize, params, req.LogAccesses,
		sim.WithProgress(func(name string, hits, misses uint64) {
			s.broadcaster.BroadcastProgress(run.ID, name, hits, misses)
		}),
		sim.WithResult(func(r []sim.Ranked) { ranked = r }))
	if err != nil {
		s.runs.Finish(run.ID, RunStatusFailed) //nolint:errcheck
		debugLog("run %s: simulation failed: %v", run.ID, err)
		s.broadcaster.BroadcastError(run.ID, err.Error())
		writeError(w, http.StatusBadRequest, fmt.Sprintf("simulation error: %v", err))
		return
	}

	s.runs.Finish(run.ID, RunStatusDone) //nolint:errcheck
	debugLog("run %s: completed, %d traces ranked", run.ID, len(ranked))
	s.broadcaster.BroadcastResult(run.ID, ranked)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"report": text,
		"ranked": ranked,
	})
}
