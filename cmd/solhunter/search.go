package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Amr-9/SolHunter/internal/ui"
	"github.com/Amr-9/SolHunter/pkg/generator"
	"github.com/Amr-9/SolHunter/pkg/generator/common"
	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

const updateRate = 100 * time.Millisecond

var req generator.Request

var (
	kernelCore string
	jsonOutput bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for keypairs matching a prefix and/or suffix",
	RunE:  searchRun,
}

func init() {
	searchCmd.Flags().StringVarP(&req.Prefix, "prefix", "p", "", "Address prefix to match (base58, case-sensitive)")
	searchCmd.Flags().StringVarP(&req.Suffix, "suffix", "s", "", "Address suffix to match (base58, case-sensitive)")
	searchCmd.Flags().IntVarP(&req.Count, "count", "n", generator.DefaultCount, "Number of keypairs to find")
	searchCmd.Flags().StringVarP(&req.OutputDir, "output", "o", generator.DefaultOutputDir, "Directory for keypair files")
	searchCmd.Flags().BoolVar(&req.ManualDeviceSelection, "select-device", false, "Pick devices interactively and share one context across them")
	searchCmd.Flags().IntVar(&req.IterationBits, "iteration-bits", generator.DefaultIterationBits, "Keys per round as a power of two")
	searchCmd.Flags().StringVar(&kernelCore, "kernel-core", common.DefaultCorePath, "Path to the Ed25519/base58 kernel core")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the outcome as JSON and skip the interactive console")
	rootCmd.AddCommand(searchCmd)
}

func searchRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := raisePriority(); err != nil {
		log.Debugw("raising process priority", "ERROR", err)
	}

	reader := bufio.NewReader(os.Stdin)
	interactive := !jsonOutput && req.Prefix == "" && req.Suffix == ""
	if interactive {
		ui.ClearScreen()
		ui.PrintWelcomeBanner(version)
		req.Prefix, req.Suffix = ui.GetInputFromUser(reader)
	}

	backend, err := newBackend(log)
	if err != nil {
		return err
	}

	// The cpu backend evaluates the kernel contract in Go and never compiles the core.
	core, err := common.LoadCore(kernelCore)
	if err != nil && backendName != "cpu" {
		return err
	}
	builder, err := solana.DefaultKernelBuilder(core)
	if err != nil {
		return err
	}

	o := solana.New(solana.Config{
		Backend:       backend,
		Builder:       builder,
		Log:           log,
		SelectDevices: ui.DevicePicker(reader),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if jsonOutput {
		out := o.Run(ctx, req)
		if err := printJSON(out); err != nil {
			return err
		}
		return out.Err
	}

	for {
		out := searchInteractive(ctx, o, backend.Name())
		if !interactive || ctx.Err() != nil || !ui.AskToContinue(reader) {
			return out.Err
		}
		req.Prefix, req.Suffix = ui.GetInputFromUser(reader)
	}
}

// searchInteractive runs one search while drawing the progress line.
func searchInteractive(ctx context.Context, o *solana.Orchestrator, backend string) generator.Outcome {
	r := req.WithDefaults()

	var found atomic.Int64
	r.Progress = func(p generator.Progress) {
		found.Store(int64(math.Round(p.Progress * float64(r.Count))))
	}

	difficulty := solana.EstimateDifficulty(r.Prefix, r.Suffix)
	ui.PrintSearchInfo(r, difficulty, backend)

	done := make(chan generator.Outcome, 1)
	go func() {
		done <- o.Run(ctx, r)
	}()

	ticker := time.NewTicker(updateRate)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case out := <-done:
			ui.PrintSummary(out, o.Stats())
			return out
		case <-ticker.C:
			if o.State() == solana.StateDispatching || o.State() == solana.StateHarvesting {
				ui.PrintProgress(o.Stats(), difficulty, int(found.Load()), r.Count, frame)
			}
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
