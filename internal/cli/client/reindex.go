package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ReindexCmd creates the reindex command.
func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge index",
		Long:  "Rebuild the tenant's knowledge chunks from its current tables and menu. Embeddings are backfilled in the background.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runReindex(cmd, outputJSON)
		},
	}

	return cmd
}

func runReindex(cmd *cobra.Command, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/knowledge/reindex", nil)
	if err != nil {
		return err
	}

	var result struct {
		Chunks int `json:"chunks"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("Reindexed %d chunks. Embeddings will backfill shortly.\n", result.Chunks)
	return nil
}
