package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/dayplan/internal/service"
	"github.com/sandeepkv93/dayplan/internal/views"
)

func planCmd(configPath *string) *cobra.Command {
	var (
		date   string
		asJSON bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the plan for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.planner.Plan(cmd.Context(), a.cfg.Planner.UserID, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			md := planMarkdown(plan)
			if !raw {
				md = views.RenderMarkdown(md)
			}
			_, err = fmt.Fprintln(out, md)
			return err
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to plan (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print unrendered markdown")
	return cmd
}

func planMarkdown(p service.Plan) string {
	loc := p.DayPlan.Location()
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan for %s\n\n", p.Date)
	fmt.Fprintf(&b, "Energy %d/5, focus %d/5. %d of %d minutes planned.\n\n", p.DayPlan.Energy, p.DayPlan.Focus, p.UsedMinutes, p.AvailableMinutes)

	b.WriteString("## Queue\n\n")
	if len(p.Queue) == 0 {
		b.WriteString("Nothing fits today.\n")
	}
	for i, s := range p.Queue {
		fmt.Fprintf(&b, "%d. **%s-%s** %s (score %d, %.0f%%)\n", i+1,
			s.EstimatedStart.In(loc).Format("15:04"), s.EstimatedEnd.In(loc).Format("15:04"),
			s.Task.Title, s.Score.Total, s.Confidence*100)
		for _, r := range s.Reasoning {
			fmt.Fprintf(&b, "   - %s\n", r)
		}
	}

	if len(p.Later) > 0 {
		b.WriteString("\n## Later\n\n")
		for _, t := range p.Later {
			fmt.Fprintf(&b, "- %s (~%dm)\n", t.Title, t.EstimateMin)
		}
	}
	if len(p.Insights) > 0 {
		b.WriteString("\n## Insights\n\n")
		for _, in := range p.Insights {
			fmt.Fprintf(&b, "- **%s**: %s\n", in.Title, in.Message)
		}
	}
	if len(p.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, r := range p.Recommendations {
			fmt.Fprintf(&b, "- **%s** [%s] %s `%s`\n", r.Title, r.Priority, r.Message, r.ID)
		}
	}
	return b.String()
}
