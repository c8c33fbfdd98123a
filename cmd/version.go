package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/abhisek/cclprep/internal/llm"
	"github.com/abhisek/cclprep/internal/scoring"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the scorer that would be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("cclprep %s (%s, %s)\n", version, revision(), runtime.Version())

		verbose, _ := cmd.Flags().GetBool("verbose")
		if !verbose {
			return nil
		}

		sc := scoring.ConfigFromEnv()
		if err := sc.Validate(); err != nil {
			fmt.Printf("scorer:   invalid (%v)\n", err)
			return nil
		}
		fmt.Printf("scorer:   %s\n", sc.Scorer)
		if sc.Scorer == scoring.ScorerRemote {
			fmt.Printf("functions: %s, %s\n", sc.ScoreFunction, sc.ResultFunction)
			return nil
		}
		if sc.Scorer != scoring.ScorerLLM {
			return nil
		}

		lc := llm.ConfigFromEnv()
		if err := lc.Validate(); err != nil {
			discovered, ok := llm.DiscoverConfig()
			if !ok {
				fmt.Printf("provider: not configured (%v)\n", err)
				return nil
			}
			lc = discovered
		}
		fmt.Printf("provider: %s\nmodel:    %s\naudio:    %t\n", lc.Provider, lc.Model(), lc.AcceptsAudio())
		return nil
	},
}

// revision is the short VCS revision baked in by the go tool, if any.
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	rev, dirty := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "unknown"
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Also show the configured scorer and model")
}
