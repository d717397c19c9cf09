package main

import (
	"github.com/spf13/cobra"

	"github.com/Amr-9/SolHunter/internal/ui"
)

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the compute devices the backend can use",
	RunE:  devicesRun,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "Print devices as JSON")
	rootCmd.AddCommand(devicesCmd)
}

func devicesRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	backend, err := newBackend(log)
	if err != nil {
		return err
	}

	devices, err := backend.Devices()
	if err != nil {
		return err
	}

	if devicesJSON {
		return printJSON(devices)
	}
	ui.PrintDevices(backend.Name(), devices)
	return nil
}
