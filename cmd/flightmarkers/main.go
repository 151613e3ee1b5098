package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	ExtensionName string = "flightmarkers"
)

var SessionStartTime time.Time = time.Now()

var rootCmd = &cobra.Command{
	Use:   "flightmarkers",
	Short: "Force marker aggregation for flight simulations",
	Long: `flightmarkers reads vessel part snapshots from its host, reduces them
to thrust, lift and drag arrows and records the results.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve host commands on stdin and reply on stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, _ := cmd.Flags().GetString("config")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, configDir)
		if err != nil {
			return err
		}
		defer a.close()

		return a.serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <command-file>",
	Short: "Run a recorded command file through the extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, _ := cmd.Flags().GetString("config")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open command file: %w", err)
		}
		defer f.Close()

		a, err := newApp(cmd.Context(), configDir)
		if err != nil {
			return err
		}
		defer a.close()

		return a.serve(cmd.Context(), f, cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the extension version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", ExtensionName, CurrentExtensionVersion, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", ".", "directory containing "+configFileHint)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
