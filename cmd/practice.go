package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/screens/practice"
)

var practiceCmd = &cobra.Command{
	Use:   "practice <dialogue-id>",
	Short: "Practice one dialogue",
	Long: `Open a dialogue straight in the practice screen.

By default each segment must be scored before moving on. --relaxed lets
you move freely: submitting moves to the next segment while the score
comes back in the background.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runApp(cmd, func(svc *services, factory practice.Factory) (screen.Screen, error) {
			d, err := svc.source.GetDialogue(cmd.Context(), id)
			if errors.Is(err, dialogue.ErrNotFound) {
				return nil, fmt.Errorf("dialogue %s not found (see 'cclprep dialogues list')", id)
			}
			if err != nil {
				return nil, fmt.Errorf("get dialogue: %w", err)
			}
			return practice.New(*d, factory), nil
		})
	},
}

func init() {
	addSessionFlags(practiceCmd)
}
