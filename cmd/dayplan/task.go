package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/commands"
	"github.com/sandeepkv93/dayplan/internal/service"
)

func taskCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd(configPath))
	cmd.AddCommand(taskListCmd(configPath))
	return cmd
}

func taskAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title> [!1-4] [@context] [~minutes] [load:1-5] [due:date] [*]",
		Short: "Add a task using the command palette grammar",
		Example: `  dayplan task add write quarterly report !3 @writing ~1h30m due:2026-02-10
  dayplan task add call the bank '*'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := commands.Parse("add " + strings.Join(args, " "))
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			in := parsed.Add
			t, err := a.planner.CreateTask(cmd.Context(), a.cfg.Planner.UserID, service.NewTask{
				Title:         in.Title,
				Due:           in.Due,
				Priority:      in.Priority,
				CognitiveLoad: in.Load,
				IsMust:        in.Must,
				ContextType:   in.Context,
				EstimateMin:   in.EstimateMin,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", t.ID, t.Title)
			return err
		},
	}
}

func taskListCmd(configPath *string) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.planner.ListTasks(cmd.Context(), a.cfg.Planner.UserID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range tasks {
				if t.Completed && !all {
					continue
				}
				mark := " "
				switch {
				case t.Completed:
					mark = "x"
				case t.IsMust:
					mark = "*"
				}
				fmt.Fprintf(out, "[%s] %s  p%d load:%d ~%dm  %s\n", mark, t.ID, t.Priority, t.CognitiveLoad, t.EstimateMin, t.Title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	return cmd
}
