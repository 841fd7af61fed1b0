package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsJSON bool

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Inspect stored conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runConversationsList,
}

var conversationsHistoryCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Show a conversation's messages in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsHistory,
}

func init() {
	conversationsCmd.PersistentFlags().BoolVar(&conversationsJSON, "json", false, "output as JSON")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsHistoryCmd)
	rootCmd.AddCommand(conversationsCmd)
}

func runConversationsList(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	convs, err := conversationService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	if conversationsJSON {
		data, err := json.MarshalIndent(convs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal conversations: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(convs) == 0 {
		cmd.Println("No conversations yet.")
		return nil
	}

	for _, c := range convs {
		cmd.Printf("%s  (updated %s)\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runConversationsHistory(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	msgs, err := conversationService.History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if conversationsJSON {
		data, err := json.MarshalIndent(msgs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal messages: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, m := range msgs {
		cmd.Printf("[%d] %s: %s\n", m.Seq, m.Role, m.Content)
		for i, c := range m.Citations {
			cmd.Printf("      [%d] %s (score %.2f)\n", i+1, c.DocumentName, c.Score)
		}
	}
	return nil
}
