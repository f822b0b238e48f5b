package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"daylist-cli/internal/format"
	"daylist-cli/internal/session"
)

func newTodoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todo",
		Aliases: []string{"todos"},
		Short:   "Todo commands",
	}

	cmd.AddCommand(newTodoAddCmd(app))
	cmd.AddCommand(newTodoEditCmd(app))
	cmd.AddCommand(newTodoToggleCmd(app))
	cmd.AddCommand(newTodoShowCmd(app))
	cmd.AddCommand(newTodoRemoveCmd(app))
	cmd.AddCommand(newTodoMergeCmd(app))
	cmd.AddCommand(newTodoIndentCmd(app))
	cmd.AddCommand(newTodoOutdentCmd(app))
	cmd.AddCommand(newTodoLevelCmd(app))
	cmd.AddCommand(newTodoMoveCmd(app))
	cmd.AddCommand(newTodoReorderCmd(app))

	return cmd
}

// todoDate is the explicit --date, else the date of the page holding the todo.
func todoDate(s *session.Session, app *App, id string) (string, error) {
	if d := strings.TrimSpace(app.Date); d != "" {
		return d, nil
	}
	_, date, err := s.GetTodo(id)
	return date, err
}

func todoView(s *session.Session, id string) (format.TodoView, error) {
	t, date, err := s.GetTodo(id)
	if err != nil {
		return format.TodoView{}, err
	}
	return format.TodoView{Date: date, Todo: t}, nil
}

func newTodoAddCmd(app *App) *cobra.Command {
	var after string
	var level int
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a todo (at the end of the page, or after --after)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				date := s.Date(app.Date)
				t, err := s.AddTodo(date, strings.Join(args, " "), after, level)
				if err != nil {
					return nil, err
				}
				return format.TodoView{Date: date, Todo: t}, nil
			})
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "Insert after this todo id")
	cmd.Flags().IntVar(&level, "level", 0, "Requested nesting level (clamped to keep the outline valid)")
	return cmd
}

func newTodoEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <todo-id> <text...>",
		Short: "Replace a todo's text (tags are re-derived)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				if err := s.UpdateTodoText(args[0], strings.Join(args[1:], " ")); err != nil {
					return nil, err
				}
				return todoView(s, args[0])
			})
		},
	}
}

func newTodoToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <todo-id>",
		Short: "Flip a todo between todo and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				if _, err := s.ToggleTodo(args[0]); err != nil {
					return nil, err
				}
				return todoView(s, args[0])
			})
		},
	}
}

func newTodoShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <todo-id>",
		Short: "Show a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				return todoView(s, args[0])
			})
		},
	}
}

func newTodoRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <todo-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo; its children move up one level",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				date, err := todoDate(s, app, args[0])
				if err != nil {
					return nil, err
				}
				if err := s.DeleteTodo(date, args[0]); err != nil {
					return nil, err
				}
				return pageView(s, date)
			})
		},
	}
}

func newTodoMergeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <todo-id>",
		Short: "Append a todo's text to its previous sibling and remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				date, err := todoDate(s, app, args[0])
				if err != nil {
					return nil, err
				}
				into, caret, err := s.MergeTodo(date, args[0])
				if err != nil {
					return nil, err
				}
				t, _, err := s.GetTodo(into)
				if err != nil {
					return nil, err
				}
				return map[string]any{"into": into, "caret": caret, "text": t.Text}, nil
			})
		},
	}
}
