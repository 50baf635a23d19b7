package commands

import (
	"fmt"
	"telemanas-backend/lib/scrapers/telemanas"
	"telemanas-backend/lib/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var watchInterval *int

func init() {
	watchInterval = watchCmd.Flags().Int("interval", 300, "Seconds between scrapes.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--interval <seconds>]",
	Short: "Scrapes the dashboard on an interval until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			serviceutil.Fatal("create client", err)
		}
		orchestrator := telemanas.NewOrchestrator(client)

		ctx := cmd.Context()
		ticker := time.NewTicker(time.Duration(*watchInterval) * time.Second)
		defer ticker.Stop()

		printOnce := func() {
			result := orchestrator.Scrape(ctx)
			if result.Success {
				fmt.Printf(
					"%s calls=%s cells=%s institutes=%s centers=%s (%s)\n",
					result.Timestamp.Format(time.TimeOnly),
					result.Data.TotalCalls,
					result.Data.TeleManasCells,
					result.Data.MentoringInstitutes,
					result.Data.RegionalCoordinatingCenters,
					result.Method,
				)
				return
			}
			fmt.Printf("%s %s\n", result.Timestamp.Format(time.TimeOnly), result.Error)
		}

		printOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				printOnce()
			}
		}
	},
}
