package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amr-9/SolHunter/internal/ui"
	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

var verifyCmd = &cobra.Command{
	Use:   "verify FILE...",
	Short: "Check that keypair files are consistent and print their addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verifyRun(cmd *cobra.Command, args []string) error {
	var failed int
	for _, path := range args {
		kp, err := solana.LoadKeypair(path)
		if err != nil {
			failed++
			fmt.Printf("    %s✗ %s%s: %v\n", ui.ColorRed, path, ui.ColorReset, err)
			continue
		}
		fmt.Printf("    %s✓ %s%s  %s%s%s\n", ui.ColorGreen, kp.Address(), ui.ColorReset, ui.ColorDim, path, ui.ColorReset)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d keypair files failed verification", failed, len(args))
	}
	return nil
}
