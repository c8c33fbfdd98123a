package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cclprep/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show past practice sessions",
	Long:  "Without arguments, list recent sessions. With a session id, list that session's scoring attempts.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) == 1 {
			return printAttempts(cmd, s.EventRepo(), args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")
		action := store.SessionFinished
		if all {
			action = ""
		}
		recs, err := s.EventRepo().QuerySessions(cmd.Context(), action, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-8s  %-30s  %-7s  %-7s  %s\n",
			"Session", "Time", "Action", "Dialogue", "Mode", "Scored", "Score")
		fmt.Println(strings.Repeat("─", 126))
		for _, r := range recs {
			score := "-"
			if r.TotalScore != nil {
				score = fmt.Sprintf("%.1f", *r.TotalScore)
				if r.Degraded {
					score += " (partial)"
				}
			}
			title := r.DialogueTitle
			if len([]rune(title)) > 30 {
				title = string([]rune(title)[:29]) + "…"
			}
			fmt.Printf("%-36s  %-16s  %-8s  %-30s  %-7s  %-7s  %s\n",
				r.SessionID,
				r.Timestamp.Local().Format("2006-01-02 15:04"),
				r.Action,
				title,
				r.Mode,
				fmt.Sprintf("%d/%d", r.SegmentsScored, r.SegmentsTotal),
				score,
			)
		}
		return nil
	},
}

func printAttempts(cmd *cobra.Command, repo store.EventRepo, sessionID string) error {
	atts, err := repo.QueryAttempts(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("query attempts: %w", err)
	}
	if len(atts) == 0 {
		fmt.Printf("No attempts recorded for session %s.\n", sessionID)
		return nil
	}

	fmt.Printf("%-8s  %-7s  %-7s  %-8s  %s\n", "Segment", "Repeat", "Score", "Audio", "Feedback / error")
	fmt.Println(strings.Repeat("─", 90))
	for _, a := range atts {
		score, note := "-", a.ErrorMessage
		if a.Success {
			score = fmt.Sprintf("%.1f", a.TotalScore)
			note = a.Feedback
		}
		fmt.Printf("%-8d  %-7d  %-7s  %-8s  %s\n",
			a.SegmentIndex+1, a.RepeatCount, score,
			fmt.Sprintf("%.1fs", float64(a.RecordingMs)/1000), note)
	}

	usage, err := repo.LLMUsageByModel(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("query scorer usage: %w", err)
	}
	if len(usage) > 0 {
		fmt.Println()
		printCostTable(usage)
	}
	return nil
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	historyCmd.Flags().Bool("all", false, "Include started and abandoned sessions")
}
