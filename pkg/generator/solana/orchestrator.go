package solana

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/SolHunter/pkg/generator"
)

// DefaultRoundDelay is the pause between rounds that keeps the host responsive.
const DefaultRoundDelay = 100 * time.Millisecond

// ErrSearchRunning is returned when Search is called on a busy Orchestrator.
var ErrSearchRunning = errors.New("a search is already running")

// State is the lifecycle phase of an Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateInitializing
	StateDispatching
	StateHarvesting
	StateComplete
	StateFailed
)

var stateNames = [...]string{"idle", "validating", "initializing", "dispatching", "harvesting", "complete", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Match is a verified keypair whose address satisfies the pattern.
type Match struct {
	Keypair    Keypair
	Address    string
	Path       string // Empty when the keypair could not be saved
	Round      uint64
	Device     string
	PersistErr error
}

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Backend    Backend
	Builder    *KernelBuilder
	Store      KeyStore // Defaults to a DirStore on the request's output directory
	Log        *zap.SugaredLogger
	RoundDelay time.Duration
	Rand       io.Reader // Source for the initial key32, defaults to crypto/rand

	// SelectDevices picks the devices for manual selection mode. When nil every
	// device is used.
	SelectDevices func([]Device) ([]Device, error)
}

// Orchestrator drives rounds of dispatches until enough matches are found.
type Orchestrator struct {
	cfg      Config
	validate *validator.Validate
	running  sync.Mutex

	state    atomic.Int32
	attempts atomic.Uint64
	rounds   atomic.Uint64
	started  atomic.Int64
}

// New constructs an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop().Sugar()
	}
	if cfg.RoundDelay == 0 {
		cfg.RoundDelay = DefaultRoundDelay
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	return &Orchestrator{
		cfg:      cfg,
		validate: validator.New(),
	}
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Stats returns counters for the current or last search. Safe for concurrent use.
func (o *Orchestrator) Stats() generator.Stats {
	attempts := o.attempts.Load()
	var elapsed float64
	if start := o.started.Load(); start != 0 {
		elapsed = time.Since(time.Unix(0, start)).Seconds()
	}
	var hashRate float64
	if elapsed > 0 {
		hashRate = float64(attempts) / elapsed
	}
	return generator.Stats{
		Attempts:    attempts,
		HashRate:    hashRate,
		ElapsedSecs: elapsed,
		Rounds:      o.rounds.Load(),
	}
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Run executes a search and folds the result into an Outcome. A failed search reports
// only the error; keypairs saved before the failure stay on disk.
func (o *Orchestrator) Run(ctx context.Context, req generator.Request) generator.Outcome {
	matches, err := o.Search(ctx, req)
	if err != nil {
		return generator.Outcome{Error: err.Error(), Err: err}
	}

	out := generator.Outcome{Success: true, Count: len(matches)}
	for _, m := range matches {
		out.Results = append(out.Results, generator.MatchRef{Address: m.Address, FilePath: m.Path})
		if m.PersistErr != nil {
			out.Warnings = append(out.Warnings, m.PersistErr.Error())
		}
	}
	return out
}

// Search finds req.Count keypairs matching the request. On failure it returns the
// matches found so far together with the error; their files stay on disk.
func (o *Orchestrator) Search(ctx context.Context, req generator.Request) (matches []Match, err error) {
	if !o.running.TryLock() {
		return nil, ErrSearchRunning
	}
	defer o.running.Unlock()

	req = req.WithDefaults()

	s := search{
		o:   o,
		req: req,
		log: o.cfg.Log.With("run", uuid.NewString()),
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search panicked: %v", r)
		}
		matches = s.matches
		if err != nil {
			failedIn := o.State()
			o.setState(StateFailed)
			s.log.Errorw("search failed", "state", failedIn, "found", len(s.matches), "ERROR", err)
			s.report(generator.Progress{Status: generator.StatusError, Progress: s.progress(), Error: err.Error()})
		}
	}()

	o.attempts.Store(0)
	o.rounds.Store(0)
	o.started.Store(time.Now().UnixNano())

	err = s.run(ctx)
	return s.matches, err
}

// search holds the state of a single Search call.
type search struct {
	o   *Orchestrator
	req generator.Request
	log *zap.SugaredLogger

	matcher *Matcher
	store   KeyStore
	host    *HostSetting
	workers []*worker
	chunks  int

	matches []Match
}

// worker owns one searcher and dispatches its chunks serially.
type worker struct {
	name     string
	searcher Searcher
	chunks   []int
}

func (s *search) run(ctx context.Context) error {
	o := s.o

	o.setState(StateValidating)
	if err := s.validateRequest(); err != nil {
		return err
	}

	o.setState(StateInitializing)
	defer s.close()
	if err := s.initialize(); err != nil {
		return err
	}

	s.log.Infow("search started", "prefix", s.req.Prefix, "suffix", s.req.Suffix, "count", s.req.Count,
		"iteration_bits", s.req.IterationBits, "workers", len(s.workers), "chunks", s.chunks)
	s.report(generator.Progress{Status: generator.StatusSearching, Progress: 0})

	for round := uint64(1); ; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("search cancelled: %w", err)
		}

		snapshot := s.host.Snapshot()

		o.setState(StateDispatching)
		found, err := s.dispatch(ctx, snapshot)
		if err != nil {
			return err
		}

		o.setState(StateHarvesting)
		s.harvest(round, found)
		o.rounds.Add(1)

		if len(s.matches) >= s.req.Count {
			break
		}

		s.host.Advance()
		s.report(generator.Progress{Status: generator.StatusSearching, Progress: s.progress()})

		select {
		case <-ctx.Done():
		case <-time.After(o.cfg.RoundDelay):
		}
	}

	o.setState(StateComplete)
	stats := o.Stats()
	s.log.Infow("search complete", "found", len(s.matches), "rounds", stats.Rounds, "attempts", stats.Attempts,
		"elapsed", stats.ElapsedSecs)
	s.report(generator.Progress{Status: generator.StatusComplete, Progress: 1})
	return nil
}

func (s *search) validateRequest() error {
	if err := s.o.validate.Struct(s.req); err != nil {
		return &generator.InvalidRequestError{Err: err}
	}
	return ValidatePattern(s.req.Prefix, s.req.Suffix)
}

func (s *search) initialize() error {
	cfg := s.o.cfg
	if cfg.Backend == nil || cfg.Builder == nil {
		return errors.New("orchestrator needs a backend and a kernel builder")
	}

	devices, err := cfg.Backend.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return generator.ErrNoDevice
	}

	if s.req.ManualDeviceSelection && cfg.SelectDevices != nil {
		devices, err = cfg.SelectDevices(devices)
		if err != nil {
			return fmt.Errorf("selecting devices: %w", err)
		}
		if len(devices) == 0 {
			return generator.ErrNoDevice
		}
	}

	program, err := cfg.Builder.Build(s.req.Prefix, s.req.Suffix, cfg.Backend.Platform())
	if err != nil {
		return err
	}

	s.host, err = NewHostSetting(s.req.IterationBits, program.Source, cfg.Rand)
	if err != nil {
		return err
	}

	s.chunks = len(devices)
	if s.host.Snapshot().WorkItems(s.chunks) == 0 {
		return fmt.Errorf("iteration bits %d leave no work for %d devices", s.req.IterationBits, s.chunks)
	}

	s.matcher = NewMatcher(s.req.Prefix, s.req.Suffix)
	s.store = cfg.Store
	if s.store == nil {
		s.store = DirStore{Dir: s.req.OutputDir}
	}

	if s.req.ManualDeviceSelection {
		sr, err := cfg.Backend.NewSearcher(SearcherConfig{Devices: devices, Chunks: s.chunks, Program: program, Log: s.log})
		if err != nil {
			return err
		}
		w := worker{name: "shared", searcher: sr}
		for i := range devices {
			w.chunks = append(w.chunks, i)
		}
		s.workers = append(s.workers, &w)
		return nil
	}

	for i, d := range devices {
		sr, err := cfg.Backend.NewSearcher(SearcherConfig{Devices: []Device{d}, Chunks: s.chunks, Program: program, Log: s.log})
		if err != nil {
			return err
		}
		s.workers = append(s.workers, &worker{name: d.Name, searcher: sr, chunks: []int{i}})
	}
	return nil
}

func (s *search) close() {
	for _, w := range s.workers {
		if err := w.searcher.Close(); err != nil {
			s.log.Warnw("closing searcher", "worker", w.name, "ERROR", err)
		}
	}
}

// dispatch runs one round on every worker and waits for all of them. Results are
// returned per worker in worker order.
func (s *search) dispatch(ctx context.Context, round Round) ([][]DispatchResult, error) {
	found := make([][]DispatchResult, len(s.workers))

	// In-flight dispatches are never interrupted by the caller's cancellation.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for i, w := range s.workers {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker %s panicked: %v", w.name, r)
				}
			}()

			for _, chunk := range w.chunks {
				res, err := w.searcher.DispatchOne(gctx, round, chunk)
				if err != nil {
					var de *generator.DispatchError
					if errors.As(err, &de) {
						s.log.Warnw("dispatch failed", "worker", w.name, "chunk", chunk, "ERROR", err)
						continue
					}
					return err
				}

				LogThroughput(s.log, res)
				s.o.attempts.Add(res.WorkItems)
				if res.Found {
					found[i] = append(found[i], res)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

// harvest records the results of one round. Devices sharing a round may report the
// same key; rounds never overlap, so duplicates are only dropped within the round.
func (s *search) harvest(round uint64, found [][]DispatchResult) {
	seen := make(map[string]struct{})
	for _, results := range found {
		for _, res := range results {
			kp := DeriveKeypair(res.PrivateKeySeed)
			address := kp.Address()

			if !s.matcher.Matches(address) || !kp.Verify() {
				s.log.Warnw("device false positive", "device", res.Device, "chunk", res.Chunk, "address", address)
				continue
			}
			if _, dup := seen[address]; dup {
				continue
			}
			seen[address] = struct{}{}

			m := Match{Keypair: kp, Address: address, Round: round, Device: res.Device}
			path, err := s.store.Save(kp)
			if err != nil {
				m.PersistErr = &generator.PersistError{Address: address, Path: path, Err: err}
				s.log.Errorw("saving keypair", "address", address, "ERROR", err)
			} else {
				m.Path = path
			}

			if len(s.matches) >= s.req.Count {
				s.log.Infow("surplus match", "address", address, "path", m.Path)
				continue
			}
			s.matches = append(s.matches, m)
			s.log.Infow("match found", "address", address, "path", m.Path, "round", round, "device", res.Device)
		}
	}
}

func (s *search) progress() float64 {
	if s.req.Count <= 0 {
		return 0
	}
	p := float64(len(s.matches)) / float64(s.req.Count)
	if p > 1 {
		p = 1
	}
	return p
}

func (s *search) report(p generator.Progress) {
	if s.req.Progress != nil {
		s.req.Progress(p)
	}
}
