package output

// RunEvent is one JSON line emitted by run --json.
type RunEvent struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`

	// step events
	Time       string   `json:"time,omitempty"`
	OutletFlow *float64 `json:"outlet_flow,omitempty"`

	// run_start
	ParameterSet string `json:"parameter_set,omitempty"`
	HRUs         int    `json:"hrus,omitempty"`

	// run_complete
	Status    string `json:"status,omitempty"`
	Steps     int    `json:"steps,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
	TotalMS   int64  `json:"total_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NetworkOutput is the JSON form of the network command.
type NetworkOutput struct {
	Levels       []NetworkLevel `json:"levels"`
	Outlets      []string       `json:"outlets"`
	TotalReaches int            `json:"total_reaches"`
	TotalEdges   int            `json:"total_edges"`
}

// NetworkLevel groups reaches that can be solved concurrently.
type NetworkLevel struct {
	Level   int            `json:"level"`
	Reaches []NetworkReach `json:"reaches"`
}

// NetworkReach is one reach and its neighbours.
type NetworkReach struct {
	Name       string   `json:"name"`
	Upstream   []string `json:"upstream"`
	Downstream []string `json:"downstream"`
}

// ValidateOutput is the JSON form of the validate command.
type ValidateOutput struct {
	Valid         bool     `json:"valid"`
	ParameterFile string   `json:"parameter_file"`
	DrivingData   string   `json:"driving_data,omitempty"`
	ParameterSet  string   `json:"parameter_set,omitempty"`
	HRUs          int      `json:"hrus,omitempty"`
	DrivingRows   int      `json:"driving_rows,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// RunInfo is one entry of the runs command.
type RunInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ParameterFile string `json:"parameter_file"`
	Status        string `json:"status"`
	Steps         int    `json:"steps"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
	DurationMS    *int64 `json:"duration_ms,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RunsOutput is the JSON form of the runs command.
type RunsOutput struct {
	Runs []RunInfo `json:"runs"`
}
