package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
)

var (
	askConversation string
	askJSON         bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the indexed documents",
	Long: `Answers a question using the indexed corpus as evidence.
The answer cites the source chunks it draws on. Pass --conversation to
continue an earlier conversation; without it a new one is started.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "conversation ID to continue")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	answer, err := queryService.Ask(cmd.Context(), driving.AskRequest{
		ConversationID: askConversation,
		Question:       args[0],
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputAnswer(cmd, answer)
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Text)
	cmd.Println()

	if answer.Uncited {
		cmd.Println("(no citations: the answer is not grounded in indexed evidence)")
	} else {
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s (score %.2f)\n", i+1, c.DocumentName, c.Score)
			if c.Snippet != "" {
				cmd.Printf("      %s\n", c.Snippet)
			}
		}
	}

	cmd.Println()
	cmd.Printf("Conversation: %s\n", answer.ConversationID)
	if answer.Degraded() {
		stages := make([]string, 0, len(answer.DegradedStages))
		for _, s := range answer.DegradedStages {
			stages = append(stages, string(s))
		}
		cmd.Printf("Degraded stages: %s\n", strings.Join(stages, ", "))
	}
	return nil
}
