package solana

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Amr-9/SolHunter/pkg/generator/common"
)

// Device describes one compute device a backend can dispatch to.
type Device struct {
	Handle       int    // Backend-specific index, opaque to callers
	Platform     string // Platform name
	Vendor       string // Platform vendor
	Name         string
	Type         string
	ComputeUnits int
	GlobalMem    uint64 // Bytes
}

func (d Device) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Platform)
}

// DispatchResult is what one dispatch of the search kernel reports. PrivateKeySeed is
// only meaningful when Found is set.
type DispatchResult struct {
	Found          bool
	PrivateKeySeed [32]byte
	WorkItems      uint64
	Elapsed        time.Duration
	Device         string
	Chunk          int
}

// Searcher runs the compiled search program on its devices.
//
// DispatchOne blocks until the device finishes the chunk. A Searcher is used by one
// goroutine at a time.
type Searcher interface {
	DispatchOne(ctx context.Context, round Round, chunk int) (DispatchResult, error)
	Close() error
}

// SearcherConfig is what a backend needs to prepare a Searcher.
type SearcherConfig struct {
	Devices []Device // One device, or every selected device for a shared context
	Chunks  int      // Number of equal slices the global work size is split into
	Program Program
	Log     *zap.SugaredLogger
}

// Backend enumerates devices and creates searchers on them.
type Backend interface {
	Name() string
	Devices() ([]Device, error)
	Platform() common.Platform
	NewSearcher(cfg SearcherConfig) (Searcher, error)
}

// LogThroughput records the advisory rate of a finished dispatch.
func LogThroughput(log *zap.SugaredLogger, res DispatchResult) {
	if log == nil {
		return
	}
	secs := res.Elapsed.Seconds()
	var rate float64
	if secs > 0 {
		rate = float64(res.WorkItems) / secs / 1e6
	}
	log.Debugw("dispatch", "device", res.Device, "chunk", res.Chunk, "work_items", res.WorkItems,
		"elapsed", res.Elapsed, "mhs", fmt.Sprintf("%.2f MH/s", rate))
}
