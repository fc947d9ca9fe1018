package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshharrison/critpath/internal/config"
	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/metrics"
	"github.com/joshharrison/critpath/internal/reporter"
	"github.com/joshharrison/critpath/internal/source"
	"github.com/joshharrison/critpath/internal/task"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	configFile string
	stdin      io.Reader

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

// persistent flag name -> config key
var flagKeys = map[string]string{
	"input":          "input.paths",
	"json-path":      "input.json_path",
	"db-driver":      "database.driver",
	"db-dsn":         "database.dsn",
	"db-query":       "database.query",
	"max-iterations": "engine.max_iterations",
	"allow-cycles":   "engine.allow_cycles",
	"workers":        "engine.workers",
	"json":           "output.json",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
}

func main() {
	if err := newRootCmd(os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{stdin: stdin}
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "critpath",
		Short: "Critical path scheduling for project portfolios",
		Long: `critpath reads task snapshots from JSON/YAML files or a SQL database,
computes early/late dates, float and critical paths per project, detects
resource double-booking across projects and propagates date changes to
dependent tasks.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default ./critpath.yaml or ~/.config/critpath/critpath.yaml)")
	pf.StringSliceP("input", "i", nil, "Task files or globs (\"-\" reads stdin)")
	pf.String("json-path", defaults.Input.JSONPath, "gjson path of the task array inside JSON input")
	pf.String("db-driver", defaults.Database.Driver, "Database driver (sqlite3, postgres)")
	pf.String("db-dsn", "", "Database DSN; reads tasks from the database instead of files")
	pf.String("db-query", defaults.Database.Query, "Query returning task rows")
	pf.Int("max-iterations", defaults.Engine.MaxIterations, "Max relaxation passes per direction")
	pf.Bool("allow-cycles", defaults.Engine.AllowCycles, "Schedule cyclic projects with bounded relaxation")
	pf.Int("workers", defaults.Engine.Workers, "Projects analysed concurrently (0 = GOMAXPROCS)")
	pf.Bool("json", false, "Machine-readable JSON output")
	pf.String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	pf.String("log-format", defaults.Logging.Format, "Log format (text, json)")

	rootCmd.AddCommand(scheduleCmd(a))
	rootCmd.AddCommand(conflictsCmd(a))
	rootCmd.AddCommand(propagateCmd(a))
	rootCmd.AddCommand(risksCmd(a))
	rootCmd.AddCommand(varianceCmd(a))
	rootCmd.AddCommand(vizCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(statusCmd(a))

	return rootCmd
}

// init loads config from file, environment and flags, in rising priority.
func (a *app) init(cmd *cobra.Command) error {
	a.v = config.New(a.configFile)
	for name, key := range flagKeys {
		if err := a.v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if err := config.Read(a.v); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func (a *app) engine(m *metrics.Metrics) *engine.Engine {
	return engine.New(engine.Options{
		CPM:     a.cfg.CPM(),
		Workers: a.cfg.Engine.Workers,
		Logger:  a.logger,
		Metrics: m,
	})
}

// loadTasks reads the task snapshot from the database when a DSN is set,
// otherwise from the input files.
func (a *app) loadTasks(ctx context.Context) ([]task.Task, error) {
	var (
		tasks []task.Task
		err   error
		from  string
	)
	if db := a.cfg.Database; db.Enabled() {
		from = db.Driver
		tasks, err = source.LoadDB(ctx, source.DBOptions{Driver: db.Driver, DSN: db.DSN, Query: db.Query})
	} else {
		from = "files"
		tasks, err = source.LoadFiles(a.cfg.Input.Paths, source.FileOptions{
			JSONPath: a.cfg.Input.JSONPath,
			Stdin:    a.stdin,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	a.logger.Debug("tasks loaded", "source", from, "count", len(tasks))
	return tasks, nil
}

// analyze loads tasks and runs the full portfolio analysis.
func (a *app) analyze(ctx context.Context) ([]task.Task, *engine.Report, error) {
	tasks, err := a.loadTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	report, err := a.engine(nil).Analyze(ctx, tasks)
	if err != nil {
		return nil, nil, err
	}
	return tasks, report, nil
}

func outputJSON(w io.Writer, v any) error {
	data, err := reporter.JSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
