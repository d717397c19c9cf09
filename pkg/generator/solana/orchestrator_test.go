package solana

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Amr-9/SolHunter/pkg/generator"
	"github.com/Amr-9/SolHunter/pkg/generator/common"
)

// =============================================================================
// Test doubles

type dispatchFunc func(cfg SearcherConfig, round Round, chunk int) (DispatchResult, error)

type stubBackend struct {
	mu          sync.Mutex
	devices     []Device
	newErr      func(cfg SearcherConfig) error
	dispatch    dispatchFunc
	deviceCalls int
	configs     []SearcherConfig
	closed      int
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Devices() ([]Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deviceCalls++
	return b.devices, nil
}

func (b *stubBackend) Platform() common.Platform {
	return common.Platform{HeaderMajor: 1, OS: "linux"}
}

func (b *stubBackend) NewSearcher(cfg SearcherConfig) (Searcher, error) {
	if b.newErr != nil {
		if err := b.newErr(cfg); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configs = append(b.configs, cfg)
	return &stubSearcher{b: b, cfg: cfg}, nil
}

type stubSearcher struct {
	b   *stubBackend
	cfg SearcherConfig
}

func (s *stubSearcher) DispatchOne(_ context.Context, round Round, chunk int) (DispatchResult, error) {
	return s.b.dispatch(s.cfg, round, chunk)
}

func (s *stubSearcher) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.closed++
	return nil
}

// scanDispatch evaluates the device program contract on the host: every work-item of
// the chunk writes its index into key32 and the first matching seed is reported.
func scanDispatch(cfg SearcherConfig, round Round, chunk int) (DispatchResult, error) {
	m := NewMatcher(cfg.Program.Prefix, cfg.Program.Suffix)
	items := round.WorkItems(cfg.Chunks)
	res := DispatchResult{Device: cfg.Devices[chunk%len(cfg.Devices)].Name, Chunk: chunk, WorkItems: items}

	var seed [32]byte
	for i := uint64(0); i < items; i++ {
		round.Candidate(&seed, uint64(chunk)*items+i)
		if m.Matches(DeriveKeypair(seed).Address()) {
			res.Found = true
			res.PrivateKeySeed = seed
			break
		}
	}
	return res, nil
}

func notFound(cfg SearcherConfig, round Round, chunk int) (DispatchResult, error) {
	return DispatchResult{Device: cfg.Devices[0].Name, Chunk: chunk, WorkItems: round.WorkItems(cfg.Chunks)}, nil
}

type failingStore struct{}

func (failingStore) Save(kp Keypair) (string, error) {
	return "/readonly/" + kp.Address() + ".json", errors.New("read-only file system")
}

func devices(n int) []Device {
	out := make([]Device, n)
	for i := range out {
		out[i] = Device{Handle: i, Platform: "Stub", Name: fmt.Sprintf("gpu%d", i), Type: "GPU"}
	}
	return out
}

// matchingSeeds returns n seeds whose addresses start with prefix.
func matchingSeeds(t *testing.T, prefix string, n int) [][32]byte {
	t.Helper()
	var out [][32]byte
	for i := 0; len(out) < n; i++ {
		var seed [32]byte
		seed[0], seed[1], seed[2] = byte(i>>16), byte(i>>8), byte(i)
		if strings.HasPrefix(DeriveKeypair(seed).Address(), prefix) {
			out = append(out, seed)
		}
		if i > 1<<20 {
			t.Fatalf("no seeds found for %q", prefix)
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, b Backend, mutate func(*Config)) *Orchestrator {
	t.Helper()
	builder, err := DefaultKernelBuilder("// core")
	if err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		Backend:    b,
		Builder:    builder,
		Log:        zaptest.NewLogger(t).Sugar(),
		RoundDelay: time.Millisecond,
		Rand:       rand.New(rand.NewSource(1)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

// =============================================================================

func TestSearchFindsRequestedCount(t *testing.T) {
	b := &stubBackend{devices: devices(2), dispatch: scanDispatch}
	o := newTestOrchestrator(t, b, nil)
	dir := t.TempDir()

	var progress []generator.Progress
	req := generator.Request{
		Prefix:        "A",
		Count:         3,
		OutputDir:     dir,
		IterationBits: 8,
		Progress:      func(p generator.Progress) { progress = append(progress, p) },
	}

	out := o.Run(context.Background(), req)
	if !out.Success {
		t.Fatalf("search failed: %s", out.Error)
	}
	if out.Count != 3 || len(out.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(out.Results))
	}

	seen := map[string]bool{}
	for _, r := range out.Results {
		if !strings.HasPrefix(r.Address, "A") {
			t.Errorf("address %s does not start with A", r.Address)
		}
		if seen[r.Address] {
			t.Errorf("duplicate address %s", r.Address)
		}
		seen[r.Address] = true

		kp, err := LoadKeypair(r.FilePath)
		if err != nil {
			t.Fatalf("LoadKeypair(%s): %v", r.FilePath, err)
		}
		if kp.Address() != r.Address {
			t.Errorf("file %s holds %s", r.FilePath, kp.Address())
		}
	}

	if len(b.configs) != 2 {
		t.Fatalf("got %d searchers, want one per device", len(b.configs))
	}
	for i, cfg := range b.configs {
		if len(cfg.Devices) != 1 || cfg.Devices[0].Handle != i || cfg.Chunks != 2 {
			t.Errorf("searcher %d config = %+v", i, cfg)
		}
	}
	if b.closed != 2 {
		t.Errorf("closed %d searchers, want 2", b.closed)
	}

	if len(progress) < 2 {
		t.Fatalf("got %d progress updates", len(progress))
	}
	if first := progress[0]; first.Status != generator.StatusSearching || first.Progress != 0 {
		t.Errorf("first progress = %+v", first)
	}
	if last := progress[len(progress)-1]; last.Status != generator.StatusComplete || last.Progress != 1 {
		t.Errorf("last progress = %+v", last)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i].Progress < progress[i-1].Progress {
			t.Errorf("progress went backwards at %d: %v -> %v", i, progress[i-1].Progress, progress[i].Progress)
		}
	}

	if o.State() != StateComplete {
		t.Errorf("state = %s, want complete", o.State())
	}
	stats := o.Stats()
	if stats.Rounds == 0 || stats.Attempts != stats.Rounds*256 {
		t.Errorf("stats = %+v, want attempts = rounds*256", stats)
	}
}

func TestSearchValidationDoesNotTouchBackend(t *testing.T) {
	tests := []struct {
		name  string
		req   generator.Request
		check func(error) bool
	}{
		{
			name:  "invalid character",
			req:   generator.Request{Prefix: "AB0"},
			check: func(err error) bool { var pe *generator.InvalidPatternError; return errors.As(err, &pe) },
		},
		{
			name:  "empty pattern",
			req:   generator.Request{},
			check: func(err error) bool { return errors.Is(err, generator.ErrEmptyPattern) },
		},
		{
			name:  "negative count",
			req:   generator.Request{Prefix: "A", Count: -1},
			check: func(err error) bool { var re *generator.InvalidRequestError; return errors.As(err, &re) },
		},
		{
			name:  "iteration bits too large",
			req:   generator.Request{Prefix: "A", IterationBits: 41},
			check: func(err error) bool { var re *generator.InvalidRequestError; return errors.As(err, &re) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &stubBackend{devices: devices(1), dispatch: scanDispatch}
			o := newTestOrchestrator(t, b, nil)

			var last generator.Progress
			tt.req.Progress = func(p generator.Progress) { last = p }

			_, err := o.Search(context.Background(), tt.req)
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if !generator.IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
			if b.deviceCalls != 0 {
				t.Error("backend was touched before validation passed")
			}
			if last.Status != generator.StatusError || last.Error == "" {
				t.Errorf("last progress = %+v, want error", last)
			}
			if o.State() != StateFailed {
				t.Errorf("state = %s, want failed", o.State())
			}
		})
	}
}

func TestSearchNoDevice(t *testing.T) {
	o := newTestOrchestrator(t, &stubBackend{dispatch: scanDispatch}, nil)
	dir := t.TempDir()

	out := o.Run(context.Background(), generator.Request{Prefix: "A", OutputDir: dir})
	if out.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(out.Err, generator.ErrNoDevice) {
		t.Errorf("err = %v, want ErrNoDevice", out.Err)
	}
	if out.Error != "No compatible GPU devices found" {
		t.Errorf("error text = %q", out.Error)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d files in output dir, want none", len(entries))
	}
}

func TestSearchBuildErrorAborts(t *testing.T) {
	b := &stubBackend{
		devices:  devices(2),
		dispatch: scanDispatch,
		newErr: func(cfg SearcherConfig) error {
			if cfg.Devices[0].Handle == 1 {
				return &generator.BuildError{Device: "gpu1", Log: "error: expected ';'", Err: errors.New("clBuildProgram returned -11")}
			}
			return nil
		},
	}
	o := newTestOrchestrator(t, b, nil)

	_, err := o.Search(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	var be *generator.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BuildError", err)
	}
	if !strings.Contains(err.Error(), "expected ';'") {
		t.Errorf("build log missing from %q", err.Error())
	}
	if b.closed != 1 {
		t.Errorf("closed %d searchers, want the one already created", b.closed)
	}
}

func TestSearchDispatchErrorContinues(t *testing.T) {
	b := &stubBackend{devices: devices(2)}
	b.dispatch = func(cfg SearcherConfig, round Round, chunk int) (DispatchResult, error) {
		if chunk == 0 {
			return DispatchResult{}, &generator.DispatchError{Device: "gpu0", Chunk: 0, Code: -5, Err: errors.New("out of resources")}
		}
		return scanDispatch(cfg, round, chunk)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	o := newTestOrchestrator(t, b, func(c *Config) { c.Log = zap.New(core).Sugar() })

	matches, err := o.Search(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Device != "gpu1" {
		t.Errorf("matches = %+v, want one from gpu1", matches)
	}
	if logs.FilterMessage("dispatch failed").Len() == 0 {
		t.Error("dispatch failure was not logged")
	}
}

func TestSearchFatalWorkerError(t *testing.T) {
	b := &stubBackend{devices: devices(1)}
	b.dispatch = func(SearcherConfig, Round, int) (DispatchResult, error) {
		return DispatchResult{}, errors.New("device lost")
	}
	o := newTestOrchestrator(t, b, nil)

	out := o.Run(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	if out.Success || !strings.Contains(out.Error, "device lost") {
		t.Errorf("outcome = %+v, want device lost failure", out)
	}
}

func TestRunFailureOmitsPartialResults(t *testing.T) {
	seed := matchingSeeds(t, "A", 1)[0]

	var mu sync.Mutex
	calls := 0
	b := &stubBackend{devices: devices(1)}
	b.dispatch = func(cfg SearcherConfig, r Round, chunk int) (DispatchResult, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return DispatchResult{Device: "gpu0", Found: true, PrivateKeySeed: seed}, nil
		}
		return DispatchResult{}, errors.New("device lost")
	}
	o := newTestOrchestrator(t, b, nil)
	dir := t.TempDir()

	out := o.Run(context.Background(), generator.Request{Prefix: "A", Count: 2, OutputDir: dir, IterationBits: 8})
	if out.Success || !strings.Contains(out.Error, "device lost") {
		t.Fatalf("outcome = %+v, want device lost failure", out)
	}
	if out.Count != 0 || out.Results != nil || out.Warnings != nil {
		t.Errorf("outcome = %+v, want error only", out)
	}

	// The match found before the failure is still saved.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d keypair files, want 1", len(entries))
	}
}

func TestSearchWorkerPanic(t *testing.T) {
	b := &stubBackend{devices: devices(1)}
	b.dispatch = func(SearcherConfig, Round, int) (DispatchResult, error) {
		panic("driver crashed")
	}
	o := newTestOrchestrator(t, b, nil)

	_, err := o.Search(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	if err == nil || !strings.Contains(err.Error(), "driver crashed") {
		t.Errorf("err = %v, want recovered panic", err)
	}
	if o.State() != StateFailed {
		t.Errorf("state = %s, want failed", o.State())
	}
}

func TestSearchPersistFailureIsWarning(t *testing.T) {
	b := &stubBackend{devices: devices(1), dispatch: scanDispatch}
	o := newTestOrchestrator(t, b, func(c *Config) { c.Store = failingStore{} })

	out := o.Run(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	if !out.Success {
		t.Fatalf("search failed: %s", out.Error)
	}
	if out.Count != 1 || out.Results[0].FilePath != "" {
		t.Errorf("results = %+v, want one unsaved match", out.Results)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "read-only") {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestSearchSkipsFalsePositives(t *testing.T) {
	good := matchingSeeds(t, "A", 1)[0]

	var mu sync.Mutex
	calls := 0
	b := &stubBackend{devices: devices(1)}
	b.dispatch = func(cfg SearcherConfig, round Round, chunk int) (DispatchResult, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		res := DispatchResult{Device: "gpu0", Found: true}
		if calls == 1 {
			// An all-zero seed does not produce an address starting with A.
			return res, nil
		}
		res.PrivateKeySeed = good
		return res, nil
	}

	core, logs := observer.New(zapcore.DebugLevel)
	o := newTestOrchestrator(t, b, func(c *Config) { c.Log = zap.New(core).Sugar() })

	matches, err := o.Search(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Round != 2 {
		t.Errorf("matches = %+v, want one found in round 2", matches)
	}
	if logs.FilterMessage("device false positive").Len() != 1 {
		t.Error("false positive was not logged")
	}
}

func TestSearchDropsDuplicatesAndTrimsSurplus(t *testing.T) {
	seeds := matchingSeeds(t, "A", 4)

	var mu sync.Mutex
	var firstKey *[32]byte
	b := &stubBackend{devices: devices(3)}
	b.dispatch = func(cfg SearcherConfig, r Round, chunk int) (DispatchResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if firstKey == nil {
			k := r.Key32
			firstKey = &k
		}
		res := DispatchResult{Device: cfg.Devices[0].Name, Chunk: chunk, Found: true}
		// Every device reports the same seed in round one.
		if r.Key32 == *firstKey {
			res.PrivateKeySeed = seeds[0]
		} else {
			res.PrivateKeySeed = seeds[chunk+1]
		}
		return res, nil
	}

	dir := t.TempDir()
	o := newTestOrchestrator(t, b, nil)

	matches, err := o.Search(context.Background(), generator.Request{Prefix: "A", Count: 2, OutputDir: dir, IterationBits: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Address == matches[1].Address {
		t.Error("duplicate address returned")
	}

	if matches[0].Round != 1 || matches[1].Round != 2 {
		t.Errorf("rounds = %d, %d, want 1, 2", matches[0].Round, matches[1].Round)
	}

	// The surplus matches of the final round are persisted but not returned.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("got %d keypair files, want 4", len(entries))
	}
}

func TestSearchCountsOneMatchPerRound(t *testing.T) {
	seed := matchingSeeds(t, "A", 1)[0]

	b := &stubBackend{devices: devices(1)}
	b.dispatch = func(cfg SearcherConfig, r Round, chunk int) (DispatchResult, error) {
		return DispatchResult{Device: "gpu0", Chunk: chunk, Found: true, PrivateKeySeed: seed}, nil
	}
	o := newTestOrchestrator(t, b, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := o.Run(ctx, generator.Request{Prefix: "A", Count: 2, OutputDir: t.TempDir(), IterationBits: 8})
	if !out.Success {
		t.Fatalf("search failed: %s", out.Error)
	}
	if out.Count != 2 {
		t.Errorf("count = %d, want 2", out.Count)
	}
	if rounds := o.Stats().Rounds; rounds != 2 {
		t.Errorf("ran %d rounds, want 2", rounds)
	}
}

func TestSearchManualSelectionSharesContext(t *testing.T) {
	var mu sync.Mutex
	var chunks []int
	b := &stubBackend{devices: devices(3)}
	b.dispatch = func(cfg SearcherConfig, r Round, chunk int) (DispatchResult, error) {
		mu.Lock()
		chunks = append(chunks, chunk)
		mu.Unlock()
		return scanDispatch(cfg, r, chunk)
	}

	o := newTestOrchestrator(t, b, func(c *Config) {
		c.SelectDevices = func(all []Device) ([]Device, error) {
			return []Device{all[0], all[2]}, nil
		}
	})

	_, err := o.Search(context.Background(), generator.Request{
		Prefix:                "A",
		OutputDir:             t.TempDir(),
		IterationBits:         8,
		ManualDeviceSelection: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(b.configs) != 1 {
		t.Fatalf("got %d searchers, want one shared searcher", len(b.configs))
	}
	cfg := b.configs[0]
	if len(cfg.Devices) != 2 || cfg.Devices[1].Handle != 2 || cfg.Chunks != 2 {
		t.Errorf("searcher config = %+v", cfg)
	}
	for i, c := range chunks {
		if c != i%2 {
			t.Fatalf("chunks dispatched out of order: %v", chunks)
		}
	}
}

func TestSearchCancelBetweenRounds(t *testing.T) {
	b := &stubBackend{devices: devices(1), dispatch: notFound}
	o := newTestOrchestrator(t, b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := 0
	req := generator.Request{
		Prefix:        "A",
		OutputDir:     t.TempDir(),
		IterationBits: 8,
		Progress: func(p generator.Progress) {
			if p.Status == generator.StatusSearching {
				updates++
				if updates == 3 {
					cancel()
				}
			}
		},
	}

	_, err := o.Search(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// The initial update plus one per finished round.
	if rounds := o.Stats().Rounds; rounds != 2 {
		t.Errorf("ran %d rounds, want 2", rounds)
	}
}

func TestSearchRoundsCoverDisjointRanges(t *testing.T) {
	var mu sync.Mutex
	var rounds []Round
	b := &stubBackend{devices: devices(2)}
	b.dispatch = func(cfg SearcherConfig, r Round, chunk int) (DispatchResult, error) {
		mu.Lock()
		if chunk == 0 {
			rounds = append(rounds, r)
		}
		mu.Unlock()
		return notFound(cfg, r, chunk)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newTestOrchestrator(t, b, nil)
	req := generator.Request{
		Prefix:        "A",
		OutputDir:     t.TempDir(),
		IterationBits: 16,
		Progress: func(p generator.Progress) {
			if o.Stats().Rounds == 3 {
				cancel()
			}
		},
	}
	if _, err := o.Search(ctx, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}

	if len(rounds) != 3 {
		t.Fatalf("recorded %d rounds, want 3", len(rounds))
	}
	seen := map[[32]byte]bool{}
	for _, r := range rounds {
		if r.Key32[30] != 0 || r.Key32[31] != 0 {
			t.Errorf("low bytes not zero: %x", r.Key32[30:])
		}
		if seen[r.Key32] {
			t.Errorf("key32 %x repeated", r.Key32)
		}
		seen[r.Key32] = true
	}

	// Chunk 0 covers [0, n) and chunk 1 covers [n, 2n) of the same key32.
	var first, last [32]byte
	r := rounds[0]
	items := r.WorkItems(2)
	r.Candidate(&first, items-1)
	r.Candidate(&last, items)
	if first == last {
		t.Error("chunk ranges overlap")
	}
}

func TestSearchRejectsEmptyChunks(t *testing.T) {
	b := &stubBackend{devices: devices(9), dispatch: notFound}
	o := newTestOrchestrator(t, b, nil)

	_, err := o.Search(context.Background(), generator.Request{Prefix: "A", OutputDir: t.TempDir(), IterationBits: 8})
	if err == nil || !strings.Contains(err.Error(), "no work") {
		t.Errorf("err = %v, want no work error", err)
	}
	if len(b.configs) != 0 {
		t.Error("searchers created for an unusable configuration")
	}
}

func TestStateString(t *testing.T) {
	if StateDispatching.String() != "dispatching" || State(42).String() != "state(42)" {
		t.Error("unexpected state names")
	}
}
