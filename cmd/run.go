package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/cclprep/internal/app"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/screens/practice"
)

// runApp builds the services and launches the TUI. first, when non-nil,
// builds a screen to open over the home screen.
func runApp(cmd *cobra.Command, first func(*services, practice.Factory) (screen.Screen, error)) error {
	scorer, _ := cmd.Flags().GetString("scorer")
	svc, err := buildServices(cmd, scorer)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts, err := sessionOptions(cmd)
	if err != nil {
		return err
	}
	factory := practice.Factory(svc.factory(opts))

	deps := app.Deps{
		Source:  svc.source,
		Events:  svc.events,
		Factory: factory,
	}
	if first != nil {
		s, err := first(svc, factory)
		if err != nil {
			return err
		}
		deps.Start = s
	}
	return app.Run(deps)
}

func init() {
	addSessionFlags(rootCmd)
}
