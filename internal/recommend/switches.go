package recommend

import (
	"sort"

	"github.com/sandeepkv93/dayplan/internal/model"
)

const SwitchCostMin = 15

// SwitchAnalysis describes the context changes in a sequence of tasks.
type SwitchAnalysis struct {
	Switches        int `json:"switches"`
	CostMin         int `json:"cost_min"`
	GroupedSwitches int `json:"grouped_switches"`
	SavedMin        int `json:"saved_min"`
}

// AnalyzeSwitches orders tasks by position and counts changes between
// consecutive non-empty contexts, against the minimum reachable by grouping
// every context together.
func AnalyzeSwitches(tasks []model.Task) SwitchAnalysis {
	ordered := make([]model.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	var out SwitchAnalysis
	prev := ""
	distinct := map[string]struct{}{}
	for _, t := range ordered {
		ctx := t.ContextType
		if ctx == "" {
			continue
		}
		distinct[ctx] = struct{}{}
		if prev != "" && ctx != prev {
			out.Switches++
		}
		prev = ctx
	}
	if len(distinct) > 1 {
		out.GroupedSwitches = len(distinct) - 1
	}
	out.CostMin = out.Switches * SwitchCostMin
	out.SavedMin = (out.Switches - out.GroupedSwitches) * SwitchCostMin
	return out
}
