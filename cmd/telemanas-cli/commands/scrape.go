package commands

import (
	"os"
	"telemanas-backend/lib/scrapers/telemanas"
	"telemanas-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetches the current dashboard counters, falling back to page scraping if the API is down.",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			serviceutil.Fatal("create client", err)
		}

		result := telemanas.NewOrchestrator(client).Scrape(cmd.Context())
		renderResult(result)
		if !result.Success {
			os.Exit(1)
		}
	},
}

func renderResult(result telemanas.ScrapeResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Total Calls", result.Data.TotalCalls},
		{"Tele MANAS Cells", result.Data.TeleManasCells},
		{"Mentoring Institutes", result.Data.MentoringInstitutes},
		{"Regional Coordinating Centers", result.Data.RegionalCoordinatingCenters},
	})
	tw.AppendSeparator()
	if result.Success {
		tw.AppendRow(table.Row{"Method", result.Method})
	} else {
		tw.AppendRow(table.Row{"Error", result.Error})
	}
	tw.AppendRow(table.Row{"Timestamp", result.Timestamp.Format("2006-01-02 15:04:05 MST")})
	tw.Render()
}
