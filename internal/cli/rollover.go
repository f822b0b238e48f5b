package cli

import (
	"github.com/spf13/cobra"

	"daylist-cli/internal/session"
)

func newRollOverCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Carry unfinished todos from earlier days onto today's page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				moved, err := s.RollOverTodosToToday()
				if err != nil {
					return nil, err
				}
				return map[string]any{"moved": moved, "date": s.Today()}, nil
			})
		},
	}
}
