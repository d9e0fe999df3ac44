package planning

const stagnantThreshold = 4

// ProgressTracker is the Progress Tracker (C11): monitors goal completion,
// tool success, and milestone reach against a GoalTree, producing a
// monotone non-decreasing overall progress score. Grounded on
// original_source's planning/progress.rs.
type ProgressTracker struct {
	metrics ProgressMetrics

	totalGoals     int
	completedGoals map[NodeID]struct{}

	expectedTools   int
	successfulTools int

	totalMilestones   int
	reachedMilestones map[string]struct{}
}

// NewProgressTracker builds a tracker sized to tree: expected tool count is
// the number of leaf (atomic) nodes, and milestones are composite nodes at
// depth 1-2 that have children — both floored at 1 so a trivial one-node
// tree still has a well-defined denominator.
func NewProgressTracker(tree *GoalTree) *ProgressTracker {
	return &ProgressTracker{
		metrics:           ProgressMetrics{},
		totalGoals:        len(tree.Nodes),
		completedGoals:    map[NodeID]struct{}{},
		expectedTools:     estimateToolOperations(tree),
		totalMilestones:   identifyMilestones(tree),
		reachedMilestones: map[string]struct{}{},
	}
}

func estimateToolOperations(tree *GoalTree) int {
	count := 0
	for id := range tree.Nodes {
		if len(tree.Edges[id]) == 0 {
			count++
		}
	}
	if count < 1 {
		count = 1
	}
	return count
}

func identifyMilestones(tree *GoalTree) int {
	count := 0
	for id, node := range tree.Nodes {
		if node.Depth >= 1 && node.Depth <= 2 && len(tree.Edges[id]) > 0 {
			count++
		}
	}
	if count < 1 {
		count = 1
	}
	return count
}

// UpdateGoalCompletion records goalID as completed and recalculates
// progress; a goal already marked completed is a no-op (the completed set
// is idempotent, which is what keeps OverallProgress monotone).
func (t *ProgressTracker) UpdateGoalCompletion(goalID NodeID) {
	if _, already := t.completedGoals[goalID]; already {
		return
	}
	t.completedGoals[goalID] = struct{}{}
	t.recalculate()
}

// UpdateToolExecution records one tool invocation's outcome.
func (t *ProgressTracker) UpdateToolExecution(success bool) {
	if success {
		t.successfulTools++
	}
	t.recalculate()
}

// UpdateMilestone records milestone as reached; reaching it twice is a
// no-op for the same monotonicity reason as UpdateGoalCompletion.
func (t *ProgressTracker) UpdateMilestone(milestone string) {
	if _, already := t.reachedMilestones[milestone]; already {
		return
	}
	t.reachedMilestones[milestone] = struct{}{}
	t.recalculate()
}

// Metrics returns the current snapshot.
func (t *ProgressTracker) Metrics() ProgressMetrics {
	return t.metrics
}

// IsStagnant reports whether the stagnant-iteration counter has crossed the
// threshold the Convergence Detector treats as "no progress."
func (t *ProgressTracker) IsStagnant() bool {
	return t.metrics.StagnantIterations >= stagnantThreshold
}

// IncrementStagnant bumps the stagnant-iteration counter; callers do this
// once per iteration in which OverallProgress did not increase.
func (t *ProgressTracker) IncrementStagnant() {
	t.metrics.StagnantIterations++
}

// ResetStagnant clears the stagnant-iteration counter after real progress.
func (t *ProgressTracker) ResetStagnant() {
	t.metrics.StagnantIterations = 0
}

func (t *ProgressTracker) recalculate() {
	if t.totalGoals > 0 {
		t.metrics.GoalCompletion = float64(len(t.completedGoals)) / float64(t.totalGoals)
	}
	if t.expectedTools > 0 {
		rate := float64(t.successfulTools) / float64(t.expectedTools)
		if rate > 1.0 {
			rate = 1.0
		}
		t.metrics.ToolSuccessRate = rate
	}
	if t.totalMilestones > 0 {
		t.metrics.MilestoneProgress = float64(len(t.reachedMilestones)) / float64(t.totalMilestones)
	}
	t.metrics.CalculateOverall()
	t.metrics.OverallProgress = clamp01(t.metrics.OverallProgress)
}

// ProgressPercentage returns OverallProgress scaled to [0, 100].
func (t *ProgressTracker) ProgressPercentage() float64 {
	return t.metrics.OverallProgress * 100.0
}

// ProgressSummary is a point-in-time snapshot suitable for telemetry/CLI
// display.
type ProgressSummary struct {
	CompletedGoals     int
	TotalGoals         int
	SuccessfulTools    int
	ExpectedTools      int
	ReachedMilestones  int
	TotalMilestones    int
	OverallProgress    float64
	Stagnant           bool
}

// Summary returns a ProgressSummary of the tracker's current state.
func (t *ProgressTracker) Summary() ProgressSummary {
	return ProgressSummary{
		CompletedGoals:    len(t.completedGoals),
		TotalGoals:        t.totalGoals,
		SuccessfulTools:   t.successfulTools,
		ExpectedTools:     t.expectedTools,
		ReachedMilestones: len(t.reachedMilestones),
		TotalMilestones:   t.totalMilestones,
		OverallProgress:   t.metrics.OverallProgress,
		Stagnant:          t.IsStagnant(),
	}
}
