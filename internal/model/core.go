package model

// Source describes where the long-format table is read from.
type Source struct {
	Path  string `json:"path"`            // local path or http(s) URL
	Type  string `json:"type,omitempty"`  // csv, tsv, xlsx; inferred from extension when empty
	Sheet string `json:"sheet,omitempty"` // xlsx sheet name, first sheet when empty
}

// Normalization configures the series normalizer.
type Normalization struct {
	TopN            int     `json:"topN"`
	ReferencePeriod *int    `json:"referencePeriod,omitempty"` // defaults to the latest period
	Threshold       float64 `json:"threshold,omitempty"`       // outlier threshold in standard deviations
	Duplicates      string  `json:"duplicates,omitempty"`      // last, first, sum
}

// RenderSpec configures the rendering collaborator. Title and labels are
// passed through to the chart unvalidated.
type RenderSpec struct {
	Format          string `json:"format"` // gif, mp4, png
	Output          string `json:"output"` // base name without extension
	Title           string `json:"title,omitempty"`
	Subtitle        string `json:"subtitle,omitempty"`
	Unit            string `json:"unit,omitempty"`
	FPS             int    `json:"fps,omitempty"`
	PeriodMillis    int    `json:"periodMillis,omitempty"`
	Bars            int    `json:"bars,omitempty"`
	Transition      string `json:"transition,omitempty"`
	Colormap        string `json:"colormap,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	DPI             int    `json:"dpi,omitempty"`
	FontFile        string `json:"fontFile,omitempty"`
	ShowValues      *bool  `json:"showValues,omitempty"`
	ShowGrid        *bool  `json:"showGrid,omitempty"`
	ShowRankChanges *bool  `json:"showRankChanges,omitempty"`
	Watermark       string `json:"watermark,omitempty"`
	Skip            bool   `json:"skip,omitempty"` // normalize and export only
}

// Export defines where the normalized panel goes besides the animation.
type Export struct {
	File     string `json:"file,omitempty"`     // wide panel: .csv, .json or .xlsx
	Rankings string `json:"rankings,omitempty"` // per-period leaderboard file
	DB       bool   `json:"db,omitempty"`       // store panel cells and rankings in sqlite
}

// Concurrency holds run-level execution limits.
type Concurrency struct {
	RenderWorkers int    `json:"renderWorkers"`
	JobTimeout    string `json:"jobTimeout"` // e.g. "5m"
}

// RunSpec is the body of POST /api/v1/runs and the input of a CLI render.
type RunSpec struct {
	Source          Source        `json:"source"`
	Transformations []string      `json:"transformations,omitempty"`
	Normalization   Normalization `json:"normalization"`
	Render          RenderSpec    `json:"render"`
	Export          *Export       `json:"export,omitempty"`
	Concurrency     Concurrency   `json:"concurrency"`
}
