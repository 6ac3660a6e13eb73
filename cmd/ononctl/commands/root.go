package commands

import (
	"context"
	"fmt"
	"os"

	"onon-backend/lib/fetch"
	"onon-backend/lib/hashstore"
	"onon-backend/lib/resolve"
	"onon-backend/lib/restyutil"
	"onon-backend/lib/scrape"
	"onon-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

// Config is the operator-facing source list, read from sources.json5
// next to the binary (with sources.local.json5 overrides).
type Config struct {
	Sources []scrape.Source   `json:"sources"`
	Kennels []resolve.Kennel  `json:"kennels,omitempty"`
	Store   *hashstore.Config `json:"store,omitempty"`
	Days    int               `json:"days,omitempty"`
}

var configPath *string
var debug *bool
var dumpHttp *string

var rootCmd = &cobra.Command{
	Use:   "ononctl",
	Short: "ononctl scrapes hash kennel event sources and reports what it found.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
		if *dumpHttp != "" {
			fetch.SetDebugOutput(restyutil.NewFilesystemOutput(*dumpHttp))
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "sources.json5", "Path to the source configuration.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "Directory to write raw request/response captures to.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
