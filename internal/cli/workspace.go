package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"daylist-cli/internal/format"
	"daylist-cli/internal/model"
	"daylist-cli/internal/mutate"
	"daylist-cli/internal/session"
)

func newWorkspaceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ws",
		Aliases: []string{"workspace"},
		Short:   "Workspace management",
	}

	cmd.AddCommand(newWorkspaceListCmd(app))
	cmd.AddCommand(newWorkspaceCreateCmd(app))
	cmd.AddCommand(newWorkspaceUseCmd(app))
	cmd.AddCommand(newWorkspaceRenameCmd(app))
	cmd.AddCommand(newWorkspaceRemoveCmd(app))

	return cmd
}

// resolveWorkspace accepts a workspace id or a case-insensitive name.
func resolveWorkspace(s *session.Session, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	wss, _ := s.Workspaces()
	for _, ws := range wss {
		if ws.ID == ref {
			return ws.ID, nil
		}
	}
	var match []model.Workspace
	for _, ws := range wss {
		if strings.EqualFold(ws.Name, ref) {
			match = append(match, ws)
		}
	}
	switch len(match) {
	case 0:
		return "", mutate.NotFoundError{Kind: "workspace", ID: ref}
	case 1:
		return match[0].ID, nil
	default:
		return "", errUsage("workspace name %q is ambiguous; use its id", ref)
	}
}

func workspaceRows(s *session.Session) []format.WorkspaceRow {
	wss, cur := s.Workspaces()
	rows := make([]format.WorkspaceRow, 0, len(wss))
	for _, ws := range wss {
		rows = append(rows, format.WorkspaceRow{ID: ws.ID, Name: ws.Name, CurrentDate: ws.CurrentDate, Current: ws.ID == cur})
	}
	return rows
}

func newWorkspaceListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				return workspaceRows(s), nil
			})
		},
	}
}

func newWorkspaceCreateCmd(app *App) *cobra.Command {
	var use bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				ws, err := s.CreateWorkspace(strings.Join(args, " "))
				if err != nil {
					return nil, err
				}
				if use {
					if _, err := s.UseWorkspace(ws.ID); err != nil {
						return nil, err
					}
					if err := app.cfg.SaveWorkspace(ws.ID); err != nil {
						return nil, err
					}
				}
				return ws, nil
			})
		},
	}
	cmd.Flags().BoolVar(&use, "use", false, "Select the new workspace")
	return cmd
}

func newWorkspaceUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id|name>",
		Short: "Select the workspace later commands apply to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				id, err := resolveWorkspace(s, args[0])
				if err != nil {
					return nil, err
				}
				ws, err := s.UseWorkspace(id)
				if err != nil {
					return nil, err
				}
				if err := app.cfg.SaveWorkspace(ws.ID); err != nil {
					return nil, err
				}
				return ws, nil
			})
		},
	}
}

func newWorkspaceRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id|name> <new-name>",
		Short: "Rename a workspace",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				id, err := resolveWorkspace(s, args[0])
				if err != nil {
					return nil, err
				}
				if err := s.RenameWorkspace(id, strings.Join(args[1:], " ")); err != nil {
					return nil, err
				}
				return workspaceRows(s), nil
			})
		},
	}
}

func newWorkspaceRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id|name>",
		Aliases: []string{"delete"},
		Short:   "Delete a workspace with all its pages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				id, err := resolveWorkspace(s, args[0])
				if err != nil {
					return nil, err
				}
				if err := s.DeleteWorkspace(id); err != nil {
					return nil, err
				}
				if app.cfg.Workspace == id {
					next := ""
					if cur, err := s.Current(); err == nil {
						next = cur.ID
					}
					if err := app.cfg.SaveWorkspace(next); err != nil {
						return nil, err
					}
				}
				return workspaceRows(s), nil
			})
		},
	}
}
