package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"daylist-cli/internal/mutate"
	"daylist-cli/internal/session"
)

// structural wraps a command that reshapes the outline of the todo's page and prints the
// page afterwards.
func structural(app *App, fn func(s *session.Session, date, id string, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return run(cmd, app, func(s *session.Session) (any, error) {
			id := args[0]
			date, err := todoDate(s, app, id)
			if err != nil {
				return nil, err
			}
			if err := fn(s, date, id, args[1:]); err != nil {
				return nil, err
			}
			return pageView(s, date)
		})
	}
}

func newTodoIndentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "indent <todo-id>",
		Short: "Nest a todo (with its children) one level deeper",
		Args:  cobra.ExactArgs(1),
		RunE: structural(app, func(s *session.Session, date, id string, _ []string) error {
			return s.Indent(date, id)
		}),
	}
}

func newTodoOutdentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "outdent <todo-id>",
		Short: "Move a todo (with its children) one level up",
		Args:  cobra.ExactArgs(1),
		RunE: structural(app, func(s *session.Session, date, id string, _ []string) error {
			return s.Outdent(date, id)
		}),
	}
}

func newTodoLevelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "level <todo-id> <level>",
		Short: "Set a todo's nesting level (clamped to keep the outline valid)",
		Args:  cobra.ExactArgs(2),
		RunE: structural(app, func(s *session.Session, date, id string, rest []string) error {
			level, err := strconv.Atoi(strings.TrimSpace(rest[0]))
			if err != nil {
				return errUsage("invalid level %q", rest[0])
			}
			return s.UpdateTodoLevel(date, id, level)
		}),
	}
}

func newTodoMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "move <todo-id> up|down",
		Short:     "Swap a todo's block with its previous or next sibling",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down"},
		RunE: structural(app, func(s *session.Session, date, id string, rest []string) error {
			var dir mutate.Direction
			switch strings.ToLower(strings.TrimSpace(rest[0])) {
			case "up":
				dir = mutate.MoveUp
			case "down":
				dir = mutate.MoveDown
			default:
				return errUsage("direction must be up or down, got %q", rest[0])
			}
			return s.MoveTodo(date, id, dir)
		}),
	}
}

func newTodoReorderCmd(app *App) *cobra.Command {
	var before string
	var after string
	var level int
	cmd := &cobra.Command{
		Use:   "reorder <todo-id>",
		Short: "Move a todo (with its children) before or after another todo, or to the end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if before != "" && after != "" {
				return writeErr(cmd, errUsage("provide at most one of --before or --after"))
			}
			return structural(app, func(s *session.Session, date, id string, _ []string) error {
				// --after X lands just below X; --before Y lands just above Y.
				return s.ReorderTodos(date, id, after, before, level)
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Place the block just before this todo id")
	cmd.Flags().StringVar(&after, "after", "", "Place the block just after this todo id")
	cmd.Flags().IntVar(&level, "level", -1, "Target level (default: keep the current level)")
	return cmd
}
