package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/scoring"
)

var dialoguesCmd = &cobra.Command{
	Use:   "dialogues",
	Short: "Browse practice dialogues",
}

var dialoguesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available dialogues",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f dialogue.Filter
		if v, _ := cmd.Flags().GetString("difficulty"); v != "" {
			d, err := dialogue.ParseDifficulty(v)
			if err != nil {
				return err
			}
			f.Difficulty = d
		}
		f.Language, _ = cmd.Flags().GetString("language")
		f.DomainID, _ = cmd.Flags().GetString("domain")

		svc, err := buildServices(cmd, scoring.ScorerMock)
		if err != nil {
			return err
		}
		defer svc.Close()

		ds, err := svc.source.ListDialogues(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("list dialogues: %w", err)
		}
		if len(ds) == 0 {
			fmt.Println("No dialogues found.")
			return nil
		}

		fmt.Printf("%-36s  %-36s  %-12s  %-14s  %-10s  %s\n",
			"ID", "Title", "Difficulty", "Domain", "Language", "Duration")
		fmt.Println(strings.Repeat("─", 124))
		for _, d := range ds {
			title := d.Title
			if len([]rune(title)) > 36 {
				title = string([]rune(title)[:35]) + "…"
			}
			fmt.Printf("%-36s  %-36s  %-12s  %-14s  %-10s  %s\n",
				d.ID, title, d.Difficulty, d.Domain.Title, d.Language, d.Duration)
		}
		return nil
	},
}

func init() {
	dialoguesListCmd.Flags().String("difficulty", "", "Only this tier: beginner, intermediate, or advanced")
	dialoguesListCmd.Flags().String("language", "", "Only dialogues in this language (e.g. Hindi)")
	dialoguesListCmd.Flags().String("domain", "", "Only this domain id")
	dialoguesCmd.AddCommand(dialoguesListCmd)
}
