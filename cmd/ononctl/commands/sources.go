package commands

import (
	"onon-backend/lib/configutil"
	"onon-backend/lib/scrape"
	"onon-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Prints the configured sources and the registered adapter types.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config](*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Type", "URL"})
		for _, src := range cfg.Sources {
			t.AppendRow(table.Row{src.Name, src.Type, src.URL})
		}
		t.Render()

		t = newTable()
		t.AppendHeader(table.Row{"Registered adapter types"})
		for _, sourceType := range scrape.Types() {
			t.AppendRow(table.Row{sourceType})
		}
		t.Render()
	},
}
