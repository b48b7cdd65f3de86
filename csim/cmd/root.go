// Package cmd provides the command-line interface for csim.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Version is the version of csim, set at build time.
var Version = "dev"

// NewRootCommand creates the csim command. Running it without a subcommand
// simulates a trace.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "csim -s <s> -E <E> -b <b> -t <tracefile>",
		Short: "csim simulates a set-associative cache over a memory trace.",
		Long: `csim replays a valgrind memory trace on a write-back, ` +
			`write-allocate cache with LRU replacement and reports hits, ` +
			`misses, evictions, and dirty bytes.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runE,
		Version:      Version,
	}

	flags := rootCmd.Flags()
	flags.Uint32P("set-index-bits", "s", 0,
		"Number of set index bits (the cache has 2^s sets)")
	flags.Uint32P("associativity", "E", 0,
		"Number of lines per set")
	flags.Uint32P("block-bits", "b", 0,
		"Number of block offset bits (blocks are 2^b bytes)")
	flags.StringP("trace", "t", "", "Trace file to replay")
	flags.BoolP("verbose", "v", false, "Print the outcome of every access")
	flags.Bool("json", false, "Print the summary as JSON")
	flags.String("record", "",
		"Record every access into <path>.sqlite3")
	flags.String("csv", "", "Write every access as a CSV row to this file")
	flags.String("results-file", "",
		"Also write the summary numbers to this file")
	flags.Bool("monitor", false,
		"Serve the simulation state over HTTP and wait for Ctrl+C at the end")
	flags.Int("monitor-port", 0, "Port of the monitoring server")
	flags.Bool("open-browser", false, "Open the monitoring server in a browser")

	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.String("config", "", "YAML file with default settings")
	persistentFlags.String("env-file", ".env",
		"File with CSIM_* environment variables to load")

	rootCmd.AddCommand(newVersionCommand(), newShowCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of csim.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "csim "+Version)
		},
	}
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
