package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/service"
)

func busyCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "busy",
		Short: "Manage busy calendar blocks",
	}
	cmd.AddCommand(busyAddCmd(configPath))
	cmd.AddCommand(busyListCmd(configPath))
	cmd.AddCommand(busyRemoveCmd(configPath))
	return cmd
}

func busyAddCmd(configPath *string) *cobra.Command {
	var (
		date     string
		repeat   string
		interval int
		weekdays []string
	)
	cmd := &cobra.Command{
		Use:     "add <title> <HH:MM> <HH:MM>",
		Short:   "Block time on a day, optionally repeating",
		Example: `  dayplan busy add standup 09:30 09:45 --repeat every_weekday --weekdays mon,tue,wed,thu,fri`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			loc := a.cfg.Location()
			if date == "" {
				date = a.planner.Today()
			}
			start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+args[1], loc)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			end, err := time.ParseInLocation("2006-01-02 15:04", date+" "+args[2], loc)
			if err != nil {
				return fmt.Errorf("end: %w", err)
			}
			in := service.NewBusyBlock{Title: args[0], Start: start, End: end}
			if repeat != "" {
				days, err := parseWeekdays(weekdays)
				if err != nil {
					return err
				}
				in.Recurrence = &model.RecurrenceRule{Type: model.RecurrenceType(repeat), Interval: interval, Weekdays: days}
			}
			b, err := a.planner.AddBusyBlock(cmd.Context(), a.cfg.Planner.UserID, in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "blocked %s %s-%s (%s)\n", b.Title, args[1], args[2], b.ID)
			return err
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day of the block, or first day of the series (default today)")
	cmd.Flags().StringVar(&repeat, "repeat", "", "every_weekday | every_n_days | every_n_weeks | last_day_of_month")
	cmd.Flags().IntVar(&interval, "interval", 1, "repeat interval for every_n_days and every_n_weeks")
	cmd.Flags().StringSliceVar(&weekdays, "weekdays", nil, "weekdays for every_weekday (mon,tue,...)")
	return cmd
}

func busyListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List busy blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			blocks, err := a.planner.ListBusyBlocks(cmd.Context(), a.cfg.Planner.UserID)
			if err != nil {
				return err
			}
			loc := a.cfg.Location()
			for _, b := range blocks {
				rule := "once"
				if b.Recurrence != nil {
					rule = string(b.Recurrence.Type)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s-%s  %-18s %s\n", b.ID,
					b.Start.In(loc).Format("2006-01-02"), b.Start.In(loc).Format("15:04"), b.End.In(loc).Format("15:04"), rule, b.Title)
			}
			return nil
		},
	}
}

func busyRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a busy block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.planner.DeleteBusyBlock(cmd.Context(), a.cfg.Planner.UserID, args[0])
		},
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		d, ok := weekdayNames[n]
		if !ok && len(n) >= 3 {
			d, ok = weekdayNames[n[:3]]
		}
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}
