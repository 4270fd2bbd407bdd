package main

import (
	"fmt"
	"os"

	"github.com/dinehq/maitred/internal/cli"
	"github.com/dinehq/maitred/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "maitred-client",
		Short: "Maitred CLI - Conversational restaurant operations",
		Long: `Maitred CLI talks to a maitred server on behalf of one operator.

Environment variables:
  MAITRED_API_KEY   API key for authentication (required)
  MAITRED_API_URL   API base URL (default: http://localhost:8080)
  MAITRED_USER_ID   Operator user ID sent with each request`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("user", "", "Operator user ID (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.ResetCmd())
	rootCmd.AddCommand(client.TablesCmd())
	rootCmd.AddCommand(client.OrdersCmd())
	rootCmd.AddCommand(client.MenuCmd())
	rootCmd.AddCommand(client.ReindexCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
