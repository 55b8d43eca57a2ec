package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/O-B-I-s/TimeTracker/internal/client"
	"github.com/O-B-I-s/TimeTracker/internal/dto"
	"github.com/O-B-I-s/TimeTracker/internal/viewmodel"
	"github.com/O-B-I-s/TimeTracker/internal/worktime"
)

// ── week ──

func (a *app) weekCommand() *cobra.Command {
	var (
		date   string
		offset int
	)
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the entries of a week",
		Example: `  timesheet week
  timesheet week --date 2025-01-08
  timesheet week --offset -1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor := a.deps.Now()
			if date != "" {
				d, err := worktime.ParseDate(date)
				if err != nil {
					return err
				}
				anchor = d
			}
			anchor = anchor.AddDate(0, 0, 7*offset)

			view := a.newView()
			if err := view.GoTo(cmd.Context(), anchor); err != nil {
				return errors.New(view.Message().Text)
			}
			renderWeek(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "any day inside the week (yyyy-MM-dd), default today")
	cmd.Flags().IntVar(&offset, "offset", 0, "shift by N weeks (negative = previous)")
	return cmd
}

// ── set ──

func (a *app) setCommand() *cobra.Command {
	var (
		start, end       string
		odoStart, odoEnd int
		clearOdometer    bool
	)
	cmd := &cobra.Command{
		Use:   "set [DATE]",
		Short: "Create or update the entry of a day",
		Long: `Create or update the entry of a day. A new entry starts from the default
09:00-17:00 draft; only the flags given are changed.`,
		Example: `  timesheet set 2025-01-06 --start 08:30 --end 17:15
  timesheet set 2025-01-06 --odo-start 1200 --odo-end 1320`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.newView()
			day, err := a.resolveDate(args, view.WeekStart().Weekday())
			if err != nil {
				return err
			}
			for _, v := range []string{start, end} {
				if v == "" {
					continue
				}
				if _, err := worktime.ParseClock(v); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if err := view.GoTo(ctx, day); err != nil {
				return errors.New(view.Message().Text)
			}
			if err := view.StartEdit(day); err != nil {
				return err
			}

			flags := cmd.Flags()
			err = view.UpdateDraft(day, func(e *dto.TimesheetEntry) {
				if start != "" {
					e.StartTime = start
				}
				if end != "" {
					e.EndTime = end
				}
				if clearOdometer {
					e.OdometerStart, e.OdometerEnd = nil, nil
				}
				if flags.Changed("odo-start") {
					v := odoStart
					e.OdometerStart = &v
				}
				if flags.Changed("odo-end") {
					v := odoEnd
					e.OdometerEnd = &v
				}
			})
			if err != nil {
				return err
			}

			if err := view.Save(ctx, day); err != nil {
				return errors.New(view.Message().Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Message().Text)
			renderDay(cmd.OutOrStdout(), view, day)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start time HH:mm")
	cmd.Flags().StringVar(&end, "end", "", "end time HH:mm")
	cmd.Flags().IntVar(&odoStart, "odo-start", 0, "odometer reading at start")
	cmd.Flags().IntVar(&odoEnd, "odo-end", 0, "odometer reading at end")
	cmd.Flags().BoolVar(&clearOdometer, "clear-odometer", false, "remove both odometer readings")
	return cmd
}

// ── delete ──

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [DATE]",
		Short: "Delete the entry of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.newView()
			day, err := a.resolveDate(args, view.WeekStart().Weekday())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := view.GoTo(ctx, day); err != nil {
				return errors.New(view.Message().Text)
			}
			if err := view.Delete(ctx, day); err != nil {
				if errors.Is(err, viewmodel.ErrNoEntry) {
					return fmt.Errorf("no entry on %s", day.Format(worktime.DateLayout))
				}
				return errors.New(view.Message().Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Message().Text)
			return nil
		},
	}
}

// ── export ──

func (a *app) exportCommand() *cobra.Command {
	var (
		params client.ExportParams
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the current week as an Excel timesheet",
		Example: `  timesheet export --name "Johnson Obioma" --employee-id 81235493 \
    --location CALGARY --department MERCH --out ./sheets`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.newView()
			data, filename, err := view.Export(cmd.Context(), params)
			if err != nil {
				return errors.New(view.Message().Text)
			}

			path := filename
			if out != "" {
				path = out
				if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
					path = filepath.Join(out, filename)
				}
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", view.Message().Text, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&params.Name, "name", "", "employee name")
	cmd.Flags().StringVar(&params.EmployeeID, "employee-id", "", "employee ID#")
	cmd.Flags().StringVar(&params.Location, "location", "", "work location")
	cmd.Flags().StringVar(&params.Department, "department", "", "department")
	cmd.Flags().StringVar(&out, "out", "", "output file or directory (default: server file name in the current directory)")
	return cmd
}
