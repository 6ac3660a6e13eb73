package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"onon-backend/lib/configutil"
	"onon-backend/lib/hashstore"
	"onon-backend/lib/scrape"
	_ "onon-backend/lib/scrapers/all"
	"onon-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

// loadSources reads the config and narrows it to the named sources, or
// all of them when no names are given.
func loadSources(args []string) (Config, []scrape.Source, error) {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		return Config{}, nil, fmt.Errorf("failed to read %s: %w", *configPath, err)
	}
	if len(args) == 0 {
		return cfg, cfg.Sources, nil
	}

	wanted := map[string]bool{}
	for _, name := range args {
		wanted[name] = true
	}
	var selected []scrape.Source
	for _, src := range cfg.Sources {
		if wanted[src.Name] {
			selected = append(selected, src)
			delete(wanted, src.Name)
		}
	}
	if len(wanted) > 0 {
		var missing []string
		for name := range wanted {
			missing = append(missing, name)
		}
		return Config{}, nil, fmt.Errorf("unknown sources: %s", strings.Join(missing, ", "))
	}
	return cfg, selected, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [source...]",
	Short: "Runs the named sources (or every configured source) and prints what they produced.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, sources, err := loadSources(args)
		if err != nil {
			serviceutil.Fatal("failed to load sources", err)
		}
		if len(sources) == 0 {
			fmt.Println("no sources configured")
			return
		}

		var store *hashstore.Store
		if cfg.Store != nil {
			s, err := hashstore.Open(*cfg.Store)
			if err != nil {
				serviceutil.Fatal("failed to open hash store", err)
			}
			defer s.Close()
			store = &s
		}

		results := scrape.FetchAll(cmd.Context(), sources, scrape.Options{Days: cfg.Days})
		for _, sr := range results {
			renderSourceResult(cmd, sr, store)
		}
	},
}

func renderSourceResult(cmd *cobra.Command, sr scrape.SourceResult, store *hashstore.Store) {
	fmt.Printf("\n== %s (%s)\n", sr.Source.Name, sr.Source.Type)
	if sr.Err != nil {
		fmt.Printf("   configuration error: %s\n", sr.Err)
		return
	}

	res := sr.Result
	t := newTable()
	t.AppendHeader(table.Row{"Date", "Kennel", "Run", "Time", "Location", "Hares"})
	for _, event := range res.Events {
		run := ""
		if event.RunNumber != nil {
			run = fmt.Sprintf("%d", *event.RunNumber)
		}
		t.AppendRow(table.Row{event.Date, event.KennelTag, run, event.StartTime, event.Location, event.Hares})
	}
	t.Render()

	for _, msg := range res.Errors {
		fmt.Printf("   error: %s\n", msg)
	}
	for key, value := range res.Diagnostics {
		slog.Debug("diagnostic", "source", sr.Source.Name, key, value)
	}

	if store != nil {
		changed, err := store.Observe(cmd.Context(), sr.Source.Name, res.StructureHash)
		if err != nil {
			slog.Error("failed to record structure hash", "source", sr.Source.Name, "err", err)
			return
		}
		if changed {
			fmt.Printf("   NOTE: page structure changed since the last pass (hash %s)\n", res.StructureHash)
		}
	}
}
