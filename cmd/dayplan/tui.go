package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/scheduler"
	"github.com/sandeepkv93/dayplan/internal/update"
)

func tuiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive day view (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), *configPath)
		},
	}
}

func runTUI(ctx context.Context, configPath string) error {
	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	engine := scheduler.NewEngine(a.cfg.UI.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	m := update.NewModel(a.planner, update.Config{
		UserID:               a.cfg.Planner.UserID,
		SlotLead:             a.cfg.UI.SlotLead,
		RefreshInterval:      a.cfg.UI.RefreshInterval,
		DesktopNotifications: a.cfg.UI.DesktopNotifications,
	}, update.WithScheduler(engine), update.WithNotifier(update.ExecDesktopNotifier{}), update.WithContext(ctx))

	if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("dayplan tui: %w", err)
	}
	return nil
}
