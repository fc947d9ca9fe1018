package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/metrics"
	"github.com/joshharrison/critpath/internal/reporter"
	"github.com/joshharrison/critpath/internal/server"
	"github.com/joshharrison/critpath/internal/state"
	"github.com/joshharrison/critpath/internal/task"
	"github.com/joshharrison/critpath/internal/ui"
	"github.com/joshharrison/critpath/internal/viz"
)

func scheduleCmd(a *app) *cobra.Command {
	var (
		flagSave     bool
		flagStateDir string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute early/late dates, float and critical paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}

			var slips []state.Slip
			if flagSave {
				slips, err = saveRun(flagStateDir, report)
				if err != nil {
					return err
				}
			}

			if a.cfg.Output.JSON {
				return outputJSON(cmd.OutOrStdout(), report)
			}

			r := reporter.New(report)
			r.PrintSchedule(cmd.OutOrStdout())
			r.PrintSummaryReport(cmd.OutOrStdout())
			printSlips(cmd.OutOrStdout(), slips)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagSave, "save", false, "Record this run and report finish slips since the last saved run")
	cmd.Flags().StringVar(&flagStateDir, "state-dir", state.DefaultDir, "Directory holding saved run state")

	return cmd
}

// saveRun persists report and returns how project finishes moved since the
// previously saved run.
func saveRun(dir string, report *engine.Report) ([]state.Slip, error) {
	var prev *state.RunState
	if state.Exists(dir) {
		loaded, err := state.Load(dir)
		if err != nil {
			return nil, err
		}
		prev = loaded
	}

	cur := state.FromReport(dir, report)
	if err := cur.Save(); err != nil {
		return nil, err
	}
	return cur.Compare(prev), nil
}

func printSlips(w io.Writer, slips []state.Slip) {
	for _, s := range slips {
		fmt.Fprintf(w, "  %s %s finish %s → %s (%s)\n",
			ui.BoldYellow("↻"), ui.ProjectPrefix(s.ProjectID), s.Previous, s.Current, ui.Days(s.Days))
	}
}

func statusCmd(a *app) *cobra.Command {
	var (
		flagStateDir string
		flagClean    bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last saved schedule run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagClean {
				return state.Clean(flagStateDir)
			}
			if !state.Exists(flagStateDir) {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved run. Use 'critpath schedule --save' to record one.")
				return nil
			}

			s, err := state.Load(flagStateDir)
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return outputJSON(cmd.OutOrStdout(), s)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run:        %s\n", ui.Dim(s.RunID))
			fmt.Fprintf(w, "Generated:  %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "Tasks:      %d\n", s.TotalTasks)
			fmt.Fprintf(w, "Conflicts:  %d\n", s.Conflicts)

			ids := make([]string, 0, len(s.Projects))
			for id := range s.Projects {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				p := s.Projects[id]
				fmt.Fprintf(w, "  %s %s  %s\n", ui.StatusIcon(p.Status), ui.ProjectPrefix(id),
					ui.Dim(fmt.Sprintf("%d days, finish %s", p.LongestPathDays, p.ProjectFinish)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagStateDir, "state-dir", state.DefaultDir, "Directory holding saved run state")
	cmd.Flags().BoolVar(&flagClean, "clean", false, "Remove saved run state")

	return cmd
}

func conflictsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "Find resources booked on overlapping tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				conflicts := report.Conflicts
				if conflicts == nil {
					conflicts = []task.Conflict{}
				}
				return outputJSON(cmd.OutOrStdout(), conflicts)
			}
			reporter.New(report).PrintConflicts(cmd.OutOrStdout(), report.Conflicts)
			return nil
		},
	}
}

func propagateCmd(a *app) *cobra.Command {
	var (
		flagTask     string
		flagStart    string
		flagEnd      string
		flagDuration int
		flagApply    bool
	)

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Shift dependents of a task whose dates changed",
		Long: `Applies new dates to one task and walks its successors, suggesting a
new start and end for every dependent. Nothing is written back; use --apply
to see the portfolio re-scheduled with the suggestions in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}

			changed, err := changedTask(tasks, flagTask, flagStart, flagEnd, flagDuration, cmd.Flags().Changed("duration"))
			if err != nil {
				return err
			}

			eng := a.engine(nil)
			if flagApply {
				out, err := eng.WhatIf(cmd.Context(), changed, tasks)
				if err != nil {
					return err
				}
				if a.cfg.Output.JSON {
					return outputJSON(cmd.OutOrStdout(), out)
				}
				r := reporter.New(out.Report)
				r.PrintUpdates(cmd.OutOrStdout(), out.Changed, out.Updates)
				r.PrintSummaryReport(cmd.OutOrStdout())
				return nil
			}

			updates := eng.Propagate(changed, tasks)
			if a.cfg.Output.JSON {
				if updates == nil {
					updates = []task.Update{}
				}
				return outputJSON(cmd.OutOrStdout(), map[string]any{"changed": changed.ID, "updates": updates})
			}
			report, err := eng.Analyze(cmd.Context(), tasks)
			if err != nil {
				return err
			}
			reporter.New(report).PrintUpdates(cmd.OutOrStdout(), changed.ID, updates)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagTask, "task", "", "ID of the changed task (required)")
	cmd.Flags().StringVar(&flagStart, "start", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagEnd, "end", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&flagDuration, "duration", 0, "New duration in days")
	cmd.Flags().BoolVar(&flagApply, "apply", false, "Re-schedule the portfolio with the updates applied")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

// changedTask copies the stored task and overrides the dates given on the
// command line. Setting a new start or duration without an end clears the
// stored end so the finish is recomputed.
func changedTask(tasks []task.Task, id, start, end string, duration int, durationSet bool) (task.Task, error) {
	var changed task.Task
	found := false
	for _, t := range tasks {
		if t.ID == id {
			changed = t.Clone()
			found = true
			break
		}
	}
	if !found {
		return task.Task{}, fmt.Errorf("task %q not found", id)
	}

	if start != "" {
		d, err := task.ParseDate(start)
		if err != nil {
			return task.Task{}, fmt.Errorf("--start: %w", err)
		}
		changed.StartDate = d
	}
	if durationSet {
		changed.DurationDays = duration
	}
	switch {
	case end != "":
		d, err := task.ParseDate(end)
		if err != nil {
			return task.Task{}, fmt.Errorf("--end: %w", err)
		}
		changed.EndDate = d
	case start != "" || durationSet:
		changed.EndDate = task.Date{}
	}
	return changed, nil
}

func risksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "risks",
		Short: "List critical tasks with compressed durations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return outputJSON(cmd.OutOrStdout(), nonNil(report.Risks()))
			}
			reporter.New(report).PrintRisks(cmd.OutOrStdout(), report.Risks())
			return nil
		},
	}
}

func varianceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variance",
		Short: "Compare early dates against baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return outputJSON(cmd.OutOrStdout(), nonNil(report.Variance()))
			}
			reporter.New(report).PrintVariance(cmd.OutOrStdout(), report.Variance())
			return nil
		},
	}
}

func vizCmd(a *app) *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the dependency graph as ASCII waves or DOT",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			return viz.Render(cmd.OutOrStdout(), viz.Format(flagFormat), report.Projects)
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot)")

	return cmd
}

func serveCmd(a *app) *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scheduling API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Server
			if cmd.Flags().Changed("addr") {
				sc.Addr = flagAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			srv := server.New(a.engine(m), server.Options{
				Logger:          a.logger,
				Metrics:         m,
				MaxBodyBytes:    sc.MaxBodyBytes,
				ReadTimeout:     sc.ReadTimeout(),
				ShutdownTimeout: sc.ShutdownTimeout(),
			})

			ui.PrintBanner(cmd.ErrOrStderr(), "listening on "+sc.Addr)
			a.logger.Info("server starting", "addr", sc.Addr)
			if err := srv.ListenAndServe(ctx, sc.Addr); err != nil {
				return err
			}
			a.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config, :8080)")

	return cmd
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
