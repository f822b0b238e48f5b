package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"daylist-cli/internal/bridge"
	"daylist-cli/internal/config"
	"daylist-cli/internal/format"
	"daylist-cli/internal/logging"
	"daylist-cli/internal/session"
	"daylist-cli/internal/storage"
)

type App struct {
	ConfigFile string
	Workspace  string
	Date       string
	PrettyJSON bool
	Format     string

	cfg     *config.Config
	log     *logging.Logger
	bridge  *bridge.Bridge
	session *session.Session
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "daylist",
		Short:        "Daily nested todo lists with roll-over",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Show today's page
  daylist page show --format text

  # Add a todo and nest another under it
  daylist todo add "write report"
  daylist todo add "outline" --after <todo-id> --level 1

  # Carry unfinished todos from earlier days to today
  daylist rollover

  # Export every page of the workspace as Markdown
  daylist page export --all --to ./journal

  # Direct todo lookup (shortcut for: daylist todo show <todo-id>)
  daylist todo-2c1f...
`),
	}

	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("DAYLIST_CONFIG", ""), "Path to daylist.yaml (default: $DAYLIST_CONFIG_DIR, ~/.daylist or ./)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("DAYLIST_WORKSPACE", ""), "Workspace id or name (default: the one selected with `ws use`)")
	cmd.PersistentFlags().StringVar(&app.Date, "date", "", "Page date YYYY-MM-DD (default: the workspace's current date)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DAYLIST_FORMAT", format.JSON), "Output format (json|text)")

	cmd.AddCommand(newWorkspaceCmd(app))
	cmd.AddCommand(newPageCmd(app))
	cmd.AddCommand(newTodoCmd(app))
	cmd.AddCommand(newRollOverCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// open loads config, wires storage, bridge and session, and selects the workspace.
func (app *App) open(cmd *cobra.Command) (*session.Session, error) {
	if app.session != nil {
		return app.session, nil
	}
	cfg, err := config.Load(app.ConfigFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend != storage.BackendMemory {
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	adapter, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	br, err := bridge.New(adapter, bridge.Options{
		MaxInFlight: cfg.Bridge.MaxInFlight,
		RatePerSec:  cfg.Bridge.RatePerSec,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(app.Workspace)
	if ref == "" {
		ref = cfg.Workspace
	}
	s, err := session.Open(commandContext(cmd), adapter, br, session.Options{Workspace: ref, Logger: log})
	if err != nil {
		_ = adapter.Close()
		return nil, err
	}
	app.cfg, app.log, app.bridge, app.session = cfg, log, br, s
	log.Debugw("session opened", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)

	if app.Workspace != "" {
		id, err := resolveWorkspace(s, app.Workspace)
		if err != nil {
			return nil, err
		}
		if _, err := s.UseWorkspace(id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// close drains pending writes and reports any that failed.
func (app *App) close(cmd *cobra.Command) error {
	if app.session == nil {
		return nil
	}
	defer app.log.Sync()
	err := app.session.Close()
	app.session = nil
	if stats, serr := app.bridge.Stats(); serr == nil {
		if n := stats.Failed(); n > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d storage write(s) failed; see log output\n", n)
		}
	}
	return err
}

// run opens the session, runs fn and writes its result. Pending writes are drained before
// returning whether fn failed or not.
func run(cmd *cobra.Command, app *App, fn func(s *session.Session) (any, error)) error {
	s, err := app.open(cmd)
	if err != nil {
		_ = app.close(cmd)
		return writeErr(cmd, err)
	}
	out, err := fn(s)
	if cerr := app.close(cmd); err == nil {
		err = cerr
	}
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, out)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), describe(err))
	return err
}
