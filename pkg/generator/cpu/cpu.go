// Package cpu runs the vanity search kernel contract on CPU goroutines. It needs no
// compute driver, which makes it useful on machines without a GPU and in tests.
package cpu

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/Amr-9/SolHunter/pkg/generator/common"
	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

// Backend exposes the host CPU as a single search device.
type Backend struct {
	workers int // Number of concurrent workers per dispatch
	log     *zap.SugaredLogger
}

// New creates a CPU backend.
// If workers is 0, it defaults to the number of CPU cores.
func New(workers int, log *zap.SugaredLogger) *Backend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backend{workers: workers, log: log}
}

// Name returns the implementation name.
func (b *Backend) Name() string {
	return "CPU"
}

// Devices reports one pseudo-device backed by all workers.
func (b *Backend) Devices() ([]solana.Device, error) {
	return []solana.Device{{
		Handle:       0,
		Platform:     "Go " + runtime.Version(),
		Vendor:       "Go",
		Name:         fmt.Sprintf("CPU (%d workers)", b.workers),
		Type:         "CPU",
		ComputeUnits: b.workers,
	}}, nil
}

// Platform reports a host with no vendor compiler quirks.
func (b *Backend) Platform() common.Platform {
	return common.Platform{Names: []string{"Go"}, HeaderMajor: 1, OS: runtime.GOOS}
}

// NewSearcher prepares a searcher for the program's pattern. The program source
// itself is not compiled; the same contract is evaluated in Go.
func (b *Backend) NewSearcher(cfg solana.SearcherConfig) (solana.Searcher, error) {
	if len(cfg.Devices) == 0 {
		return nil, fmt.Errorf("no devices given")
	}
	log := cfg.Log
	if log == nil {
		log = b.log
	}
	return &searcher{
		matcher: solana.NewMatcher(cfg.Program.Prefix, cfg.Program.Suffix),
		chunks:  cfg.Chunks,
		workers: b.workers,
		devices: cfg.Devices,
		log:     log,
	}, nil
}

type searcher struct {
	matcher *solana.Matcher
	chunks  int
	workers int
	devices []solana.Device
	log     *zap.SugaredLogger
}

// DispatchOne examines indices [chunk*n, (chunk+1)*n) of the round, where n is the
// per-chunk work size, and stops at the first match.
func (s *searcher) DispatchOne(ctx context.Context, round solana.Round, chunk int) (solana.DispatchResult, error) {
	start := time.Now()
	items := round.WorkItems(s.chunks)
	base := uint64(chunk) * items

	res := solana.DispatchResult{
		Device:    s.devices[chunk%len(s.devices)].Name,
		Chunk:     chunk,
		WorkItems: items,
	}

	if items == 0 {
		return res, nil
	}

	done := make(chan struct{})
	var closeOnce sync.Once
	var wg sync.WaitGroup

	workers := uint64(s.workers)
	if workers > items {
		workers = items
	}
	span := (items + workers - 1) / workers

	for w := uint64(0); w < workers; w++ {
		lo := base + w*span
		hi := min(lo+span, base+items)

		wg.Add(1)
		go func() {
			defer wg.Done()

			var seed [32]byte
			for idx := lo; idx < hi; idx++ {
				if idx&0xff == 0 {
					select {
					case <-ctx.Done():
						return
					case <-done:
						return
					default:
					}
				}

				round.Candidate(&seed, idx)
				privKey := ed25519.NewKeyFromSeed(seed[:])

				// Solana address is the Base58-encoded public key
				if s.matcher.Matches(base58.Encode(privKey[32:])) {
					closeOnce.Do(func() {
						res.Found = true
						res.PrivateKeySeed = seed
						close(done)
					})
					return
				}
			}
		}()
	}
	wg.Wait()

	res.Elapsed = time.Since(start)
	return res, nil
}

// Close does nothing; the searcher holds no native resources.
func (s *searcher) Close() error {
	return nil
}
