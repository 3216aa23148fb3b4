// SPDX-License-Identifier: Unlicense OR MIT

// Command xevdump opens a window and prints the normalized events the
// event loop delivers for it, one per line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	flags struct {
		config   string
		display  string
		logLevel string
		raw      bool
		block    bool
	}

	rootCmd = &cobra.Command{
		Use:   "xevdump",
		Short: "Print normalized X11 input and window events",
		Long: `xevdump connects to the X server, opens a window and prints every
event the event loop translates for it. Close the window or interrupt
the program to quit.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runDump,
	}
)

func init() {
	rootCmd.Version = Version
	rootCmd.Flags().StringVarP(&flags.config, "config", "c", "", "YAML configuration file")
	rootCmd.Flags().StringVarP(&flags.display, "display", "d", "", "X display to connect to (default $DISPLAY)")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&flags.raw, "raw", false, "also print device scoped raw events")
	rootCmd.Flags().BoolVar(&flags.block, "block", false, "block for each event instead of polling")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
