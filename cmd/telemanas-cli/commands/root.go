package commands

import (
	"context"
	"fmt"
	"os"
	"telemanas-backend/lib/scrapers/telemanas"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "telemanas-cli",
	Short: "telemanas-cli fetches and inspects the Tele MANAS dashboard counters.",
}

var baseUrl *string
var timeoutMs *int
var maxRetries *int

func init() {
	baseUrl = rootCmd.PersistentFlags().String("base-url", telemanas.DefaultBaseURL, "The dashboard base url.")
	timeoutMs = rootCmd.PersistentFlags().Int("timeout", 15000, "Per-request timeout in milliseconds.")
	maxRetries = rootCmd.PersistentFlags().Int("max-retries", 3, "Attempt budget per request.")
}

func newClient() (*telemanas.Client, error) {
	return telemanas.NewClient(telemanas.ClientOptions{
		BaseURL:    *baseUrl,
		Timeout:    time.Duration(*timeoutMs) * time.Millisecond,
		MaxRetries: *maxRetries,
	})
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
