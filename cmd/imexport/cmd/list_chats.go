package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listChatsCmd = &cobra.Command{
	Use:   "list-chats <participant>",
	Short: "List chats that include a matching participant",
	Long: `List every chat thread with a participant whose identifier (phone
number or email) contains the given substring. Matching is case-sensitive.

Examples:
  imexport list-chats "+44"
  imexport list-chats john@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runListChats,
}

func runListChats(cmd *cobra.Command, args []string) error {
	participant := args[0]
	if err := validateParticipant(participant); err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	candidates, err := s.FindChatsByParticipant(cmd.Context(), participant)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no chats found with participant %q", participant)
	}

	fmt.Printf("Found %d chat(s):\n", len(candidates))
	for i, chat := range candidates {
		name := chat.DisplayName
		if name == "" {
			name = "Unnamed chat"
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   Identifier: %s\n", chat.Identifier)
		fmt.Printf("   Participants: %s\n\n", chat.ParticipantList())
	}
	return nil
}

// validateParticipant rejects search strings that cannot match any
// handle: empty or made entirely of non-alphanumeric characters.
func validateParticipant(p string) error {
	if p == "" {
		return fmt.Errorf("participant identifier must not be empty")
	}
	for _, r := range p {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return nil
		}
	}
	return fmt.Errorf("participant identifier %q must contain alphanumeric characters", p)
}

func init() {
	rootCmd.AddCommand(listChatsCmd)
}
