// Command solhunter searches for Solana vanity addresses on GPUs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Amr-9/SolHunter/internal/logger"
	"github.com/Amr-9/SolHunter/pkg/generator/cpu"
	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

const version = "1.0"

var (
	backendName string
	verbose     bool
	logFile     string
	cpuWorkers  int
)

var rootCmd = &cobra.Command{
	Use:     "solhunter",
	Short:   "GPU vanity address search for Solana",
	Version: version,
	Long: `Search for Ed25519 keypairs whose base58 address starts and/or ends with a
chosen pattern. Candidate keys are enumerated on OpenCL GPUs in rounds; every
match is verified on the host and saved as a keypair file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&backendName, "backend", "b", "opencl", "Compute backend: opencl or cpu")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log dispatch details")
	rootCmd.PersistentFlags().StringVarP(&logFile, "log-file", "l", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().IntVar(&cpuWorkers, "cpu-workers", 0, "Workers for the cpu backend (default: number of cores)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.SugaredLogger, error) {
	if logFile != "" {
		return logger.New("SOLHUNTER", verbose, logFile)
	}
	return logger.New("SOLHUNTER", verbose)
}

func newBackend(log *zap.SugaredLogger) (solana.Backend, error) {
	switch backendName {
	case "opencl":
		return solana.NewOpenCLBackend(log), nil
	case "cpu":
		return cpu.New(cpuWorkers, log), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want opencl or cpu)", backendName)
}
