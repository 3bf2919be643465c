package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/pmarks/imexport/internal/chatdb"
)

// selectFunc picks one option by zero-based index. It is injected so
// commands can be exercised without a terminal.
type selectFunc func(title string, options []string) (int, error)

// chooseChat resolves ambiguity when several chats match a participant.
// A non-negative chatIndex flag short-circuits the prompt.
func chooseChat(candidates []chatdb.ChatSummary, chatIndex int, sel selectFunc) (*chatdb.ChatSummary, error) {
	if chatIndex >= 0 {
		if chatIndex >= len(candidates) {
			return nil, fmt.Errorf("invalid chat index %d: %d chat(s) matched", chatIndex, len(candidates))
		}
		return &candidates[chatIndex], nil
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}

	options := make([]string, len(candidates))
	for i, c := range candidates {
		options[i] = fmt.Sprintf("%s (%s)", c.Title(), c.ParticipantList())
	}
	idx, err := sel("Multiple chats found. Select one:", options)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(candidates) {
		return nil, fmt.Errorf("invalid choice %d", idx)
	}
	return &candidates[idx], nil
}

// promptSelect is the interactive selectFunc used by commands. It
// refuses to prompt without a terminal so scripted runs fail with a
// clear instruction instead of hanging.
func promptSelect(title string, options []string) (int, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return 0, fmt.Errorf("multiple chats matched but stdin is not a terminal; re-run with --chat-index")
	}

	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}

	var idx int
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title(title).
			Options(opts...).
			Value(&idx),
	))
	if err := form.Run(); err != nil {
		return 0, fmt.Errorf("chat selection: %w", err)
	}
	return idx, nil
}
