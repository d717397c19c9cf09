// Package generator defines the request, outcome and progress types shared by the
// vanity search engine and its front ends.
package generator

// Status is the phase reported through a ProgressFunc.
type Status string

const (
	StatusSearching Status = "searching"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Progress is delivered to the caller between search rounds.
type Progress struct {
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"` // satisfied/requested, in [0,1]
	Error    string  `json:"error,omitempty"`
}

// ProgressFunc receives progress updates. It is only ever called from the goroutine
// running the search, so it does not need to be reentrant.
type ProgressFunc func(Progress)

// Request describes one vanity search invocation.
type Request struct {
	// Desired address prefix and suffix (base58, case-sensitive).
	Prefix string
	Suffix string

	// Number of keypairs to find.
	Count int `validate:"min=1"`

	// Directory for keypair files.
	OutputDir string `validate:"required"`

	// Share one context across user-selected devices.
	ManualDeviceSelection bool

	// Work-items per round = 2^IterationBits.
	IterationBits int `validate:"min=8,max=40"`

	Progress ProgressFunc `validate:"-"`
}

// Defaults used when a Request field is left at its zero value.
const (
	DefaultCount         = 1
	DefaultIterationBits = 24
	DefaultOutputDir     = "./"
)

// WithDefaults returns a copy of the request with zero values replaced by defaults.
func (r Request) WithDefaults() Request {
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.IterationBits == 0 {
		r.IterationBits = DefaultIterationBits
	}
	if r.OutputDir == "" {
		r.OutputDir = DefaultOutputDir
	}
	return r
}

// MatchRef is the externally visible part of a found keypair.
type MatchRef struct {
	Address  string `json:"address"`
	FilePath string `json:"filePath"`
}

// Outcome is the top-level result of a search.
type Outcome struct {
	Success  bool       `json:"success"`
	Results  []MatchRef `json:"results,omitempty"`
	Count    int        `json:"count"`
	Error    string     `json:"error,omitempty"`
	Warnings []string   `json:"warnings,omitempty"` // Degraded-success notes (e.g. unsaved keys)

	Err error `json:"-"`
}

// Stats holds real-time performance statistics.
type Stats struct {
	Attempts    uint64  // Total number of candidate keys examined
	HashRate    float64 // Keys per second since the search started
	ElapsedSecs float64 // Time elapsed since start
	Rounds      uint64  // Completed dispatch rounds
}
