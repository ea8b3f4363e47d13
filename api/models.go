package api

// SimulateRequest is the body of POST /api/v1/simulate.
type SimulateRequest struct {
	TraceText   string      `json:"trace_text"`
	CyclesHit   uint64      `json:"cycles_hit,omitempty"`
	CyclesMiss  uint64      `json:"cycles_miss,omitempty"`
	ClockMHz    uint64      `json:"clock_mhz,omitempty"`
	Cache       CacheParams `json:"cache,omitempty"`
	LogAccesses bool        `json:"log_accesses,omitempty"`
}

// CacheParams overrides the cache geometry for one request; zero fields fall
// back to the server's default configuration.
type CacheParams struct {
	Sets     int `json:"sets,omitempty"`
	Ways     int `json:"ways,omitempty"`
	LineSize int `json:"line_size,omitempty"`
}

// ErrorResponse is the JSON body written on any request failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
