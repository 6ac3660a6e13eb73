package commands

import (
	"fmt"
	"strings"

	"onon-backend/lib/resolve"
	"onon-backend/lib/scrape"
	"onon-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [source...]",
	Short: "Runs a scrape pass and resolves the raw events into a deduplicated canonical list.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, sources, err := loadSources(args)
		if err != nil {
			serviceutil.Fatal("failed to load sources", err)
		}
		if len(sources) == 0 {
			fmt.Println("no sources configured")
			return
		}

		results := scrape.FetchAll(cmd.Context(), sources, scrape.Options{Days: cfg.Days})
		for _, sr := range results {
			if sr.Err != nil {
				fmt.Printf("skipping %s: %s\n", sr.Source.Name, sr.Err)
			}
		}

		resolver := resolve.NewRegistryResolver(cfg.Kennels)
		canonical, err := resolver.Resolve(cmd.Context(), results)
		if err != nil {
			serviceutil.Fatal("failed to resolve events", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Date", "Kennel", "Run", "Time", "Location", "Sources"})
		for _, event := range canonical {
			run := ""
			if event.Event.RunNumber != nil {
				run = fmt.Sprintf("%d", *event.Event.RunNumber)
			}
			t.AppendRow(table.Row{
				event.Event.Date,
				event.Kennel,
				run,
				event.Event.StartTime,
				event.Event.Location,
				strings.Join(event.Sources, ", "),
			})
		}
		t.Render()
	},
}
