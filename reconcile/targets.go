package reconcile

import (
	"math"
	"sort"
	"strings"
)

// =============================================================================
// TARGET AGGREGATOR
// =============================================================================

// TargetSummary is the output of AggregateTargets.
type TargetSummary struct {
	Targets []TaskTarget

	// Incomplete counts records lacking an entity, task or frequency.
	Incomplete int

	// UnmappedLabels counts distinct plan task labels with no canonical
	// mapping; their rows keep the raw label and never match an activity.
	UnmappedLabels int
}

// PlanTask resolves the task key of a plan label: the canonical task when
// the label maps, otherwise the trimmed raw label.
func PlanTask(label string) (Task, bool) {
	if t, ok := NormalizeTask(label); ok {
		return t, true
	}
	return Task(strings.TrimSpace(label)), false
}

// AggregateTargets sums frequencies per (entity, task) and truncates each sum
// to an integer target count. Output is sorted by entity then task.
func AggregateTargets(plan []PlanRecord) TargetSummary {
	sums := make(map[TaskKey]float64)
	unmapped := make(map[string]struct{})
	var summary TargetSummary

	for _, rec := range plan {
		label := strings.TrimSpace(rec.Task)
		if rec.EntityID == nil || label == "" || rec.Frequency == nil ||
			math.IsNaN(*rec.Frequency) || math.IsInf(*rec.Frequency, 0) {
			summary.Incomplete++
			continue
		}
		task, mapped := PlanTask(label)
		if !mapped {
			unmapped[label] = struct{}{}
		}
		sums[TaskKey{EntityID: *rec.EntityID, Task: task}] += *rec.Frequency
	}

	summary.Targets = make([]TaskTarget, 0, len(sums))
	for k, sum := range sums {
		count := int(math.Trunc(sum))
		if count < 0 {
			count = 0
		}
		summary.Targets = append(summary.Targets, TaskTarget{TaskKey: k, TargetCount: count})
	}
	sort.Slice(summary.Targets, func(i, j int) bool {
		return summary.Targets[i].TaskKey.less(summary.Targets[j].TaskKey)
	})
	summary.UnmappedLabels = len(unmapped)
	return summary
}

func (k TaskKey) less(other TaskKey) bool {
	if k.EntityID != other.EntityID {
		return k.EntityID < other.EntityID
	}
	return k.Task < other.Task
}
