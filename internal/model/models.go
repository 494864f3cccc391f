package model

// Correction records an outlier replaced by linear interpolation.
type Correction struct {
	Entity    string  `json:"entity"`
	Period    int     `json:"period"`
	Original  float64 `json:"original"`
	Corrected float64 `json:"corrected"`
}

// Gap records a flagged outlier left unchanged because it has no valid
// neighbour on one side.
type Gap struct {
	Entity string  `json:"entity"`
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// NormalizeReport summarizes one normalizer run.
type NormalizeReport struct {
	RowsRead    int          `json:"rows_read"`
	RowsSkipped int          `json:"rows_skipped"`
	Duplicates  int          `json:"duplicates"`
	Entities    int          `json:"entities"`
	Selected    []string     `json:"selected"`
	Reference   int          `json:"reference_period"`
	Outliers    int          `json:"outliers"`
	Corrections []Correction `json:"corrections"`
	Gaps        []Gap        `json:"gaps"`
}

// OutputFile is an artifact written by a run.
type OutputFile struct {
	ID        int64  `json:"id,omitempty"`
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"` // animation, frames, static, panel, rankings
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	FileType  string `json:"file_type"`
	CreatedAt string `json:"created_at,omitempty"`
}

// RunSummary is what a finished run reports back: the normalizer report
// and the rendering outcome.
type RunSummary struct {
	Report    NormalizeReport `json:"report"`
	Strategy  string          `json:"strategy,omitempty"`
	Format    string          `json:"format,omitempty"`
	Requested string          `json:"requested_format,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Frames    int             `json:"frames"`
	Output    string          `json:"output,omitempty"`
}
