package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Amr-9/SolHunter/internal/ui"
	"github.com/Amr-9/SolHunter/pkg/generator"
	"github.com/Amr-9/SolHunter/pkg/generator/common"
	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

// selftestPatterns are short enough to be found within a few rounds on any device.
var selftestPatterns = []struct{ prefix, suffix string }{
	{"A", ""},
	{"", "z"},
	{"9", "9"},
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run short searches and compare device results with host key derivation",
	RunE:  selftestRun,
}

func init() {
	selftestCmd.Flags().StringVar(&kernelCore, "kernel-core", common.DefaultCorePath, "Path to the Ed25519/base58 kernel core")
	rootCmd.AddCommand(selftestCmd)
}

func selftestRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	backend, err := newBackend(log)
	if err != nil {
		return err
	}

	core, err := common.LoadCore(kernelCore)
	if err != nil && backendName != "cpu" {
		return err
	}
	builder, err := solana.DefaultKernelBuilder(core)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "solhunter-selftest")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	o := solana.New(solana.Config{Backend: backend, Builder: builder, Log: log})

	fmt.Printf("\n    %s🔬 SELF TEST%s %s(%s)%s\n\n", ui.ColorPurple+ui.ColorBold, ui.ColorReset, ui.ColorDim, backend.Name(), ui.ColorReset)

	var failed int
	for i, p := range selftestPatterns {
		matches, err := o.Search(context.Background(), generator.Request{
			Prefix:        p.prefix,
			Suffix:        p.suffix,
			Count:         1,
			OutputDir:     dir,
			IterationBits: 16,
		})
		label := ui.PatternLabel(p.prefix, p.suffix)
		if err != nil {
			failed++
			fmt.Printf("    Test %d %s: %s❌ %v%s\n", i+1, label, ui.ColorRed, err, ui.ColorReset)
			continue
		}

		m := matches[0]
		host := solana.DeriveKeypair(m.Keypair.Private)
		if host.Address() != m.Address || !host.Verify() {
			failed++
			fmt.Printf("    Test %d %s: %s❌ MISMATCH%s device %s host %s\n", i+1, label, ui.ColorRed, ui.ColorReset, m.Address, host.Address())
			continue
		}
		fmt.Printf("    Test %d %s: %s✅ %s%s\n", i+1, label, ui.ColorGreen, m.Address, ui.ColorReset)
	}

	fmt.Println("\n  ─────────────────────────────────────────────────────────────────")
	if failed > 0 {
		return fmt.Errorf("%d of %d self tests failed", failed, len(selftestPatterns))
	}
	fmt.Printf("    %s✅ ALL TESTS PASSED%s\n", ui.ColorGreen+ui.ColorBold, ui.ColorReset)
	return nil
}
