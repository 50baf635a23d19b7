package commands

import (
	"fmt"
	"os"
	"telemanas-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Checks whether the dashboard API answers at all.",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			serviceutil.Fatal("create client", err)
		}

		if client.TestConnection(cmd.Context()) {
			fmt.Println("dashboard API is reachable")
			return
		}
		fmt.Println("dashboard API is unreachable")
		os.Exit(1)
	},
}
