package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskResponse mirrors the assistant query API response.
type AskResponse struct {
	Success          bool           `json:"success"`
	Reply            string         `json:"reply"`
	Action           string         `json:"action,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
	Code             string         `json:"code,omitempty"`
	RequiresFollowUp bool           `json:"requires_follow_up,omitempty"`
	MissingParams    []string       `json:"missing_params,omitempty"`
	Cached           bool           `json:"cached,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask the assistant a question",
		Long:  "Send a natural language query to the assistant, e.g. \"which tables are free?\" or \"place an order for table 3\".",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, strings.Join(args, " "), outputJSON)
		},
	}

	return cmd
}

func runAsk(cmd *cobra.Command, query string, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/assistant/query", map[string]string{"query": query})
	if err != nil {
		return err
	}

	var result AskResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Println(result.Reply)
	if result.RequiresFollowUp && len(result.MissingParams) > 0 {
		fmt.Printf("(missing: %s)\n", strings.Join(result.MissingParams, ", "))
	}
	if result.Cached {
		fmt.Println("(cached)")
	}

	return nil
}

// ResetCmd creates the reset command, clearing server-side conversation state.
func ResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the conversation",
		Long:  "Clear the server-side conversation history and follow-up context for the current user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := apiClient.Delete("/assistant/conversation"); err != nil {
				return err
			}

			fmt.Println("Conversation reset")
			return nil
		},
	}

	return cmd
}
