package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"daylist-cli/internal/format"
	"daylist-cli/internal/model"
	"daylist-cli/internal/publish"
	"daylist-cli/internal/session"
)

func newPageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Day page commands",
	}

	cmd.AddCommand(newPageShowCmd(app))
	cmd.AddCommand(newPageNotesCmd(app))
	cmd.AddCommand(newPageUseCmd(app))
	cmd.AddCommand(newPageExportCmd(app))

	return cmd
}

// pageView renders the page a command acted on.
func pageView(s *session.Session, date string) (format.PageView, error) {
	ws, err := s.Current()
	if err != nil {
		return format.PageView{}, err
	}
	p, _, err := s.Page(date)
	if err != nil {
		return format.PageView{}, err
	}
	return format.PageView{Workspace: ws.Name, Page: p}, nil
}

func newPageShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show a day page as an outline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				return pageView(s, s.Date(app.Date))
			})
		},
	}
}

func newPageNotesCmd(app *App) *cobra.Command {
	var wipe bool
	cmd := &cobra.Command{
		Use:   "notes [text...]",
		Short: "Set the free-form notes of a day page",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !wipe {
				return writeErr(cmd, errUsage("provide notes text or --clear"))
			}
			return run(cmd, app, func(s *session.Session) (any, error) {
				date := s.Date(app.Date)
				notes := ""
				if !wipe {
					notes = strings.Join(args, " ")
				}
				if err := s.SetPageNotes(date, notes); err != nil {
					return nil, err
				}
				return pageView(s, date)
			})
		},
	}
	cmd.Flags().BoolVar(&wipe, "clear", false, "Remove the notes")
	return cmd
}

func newPageUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <YYYY-MM-DD|today>",
		Short: "Select the day later commands default to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, func(s *session.Session) (any, error) {
				date := strings.TrimSpace(args[0])
				if strings.EqualFold(date, "today") {
					date = s.Today()
				}
				if err := s.SetCurrentDate(date); err != nil {
					return nil, err
				}
				return pageView(s, date)
			})
		},
	}
}

func newPageExportCmd(app *App) *cobra.Command {
	var to string
	var all bool
	var opt publish.WriteOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write day pages as Markdown task lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) == "" {
				return writeErr(cmd, errUsage("missing --to"))
			}
			return run(cmd, app, func(s *session.Session) (any, error) {
				ws, err := s.Current()
				if err != nil {
					return nil, err
				}
				var pages []model.Page
				if all {
					pages, err = s.Pages()
				} else {
					var p model.Page
					p, _, err = s.Page(s.Date(app.Date))
					pages = []model.Page{p}
				}
				if err != nil {
					return nil, err
				}
				return publish.WritePages(ws, pages, to, opt)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&all, "all", false, "Export every stored page of the workspace")
	cmd.Flags().BoolVar(&opt.SkipDone, "skip-done", false, "Leave finished todos out")
	cmd.Flags().BoolVar(&opt.SkipBlank, "skip-blank", false, "Leave empty todos out")
	cmd.Flags().BoolVar(&opt.Overwrite, "overwrite", false, "Replace existing files")
	return cmd
}
