// Package planning implements the Complexity Estimator (C8), Hierarchical
// Planner (C10), Progress Tracker (C11), and Convergence Detector (C12).
// All four are ported near-formula-for-formula from original_source's
// planning/complexity.rs, planning/hierarchical.rs, planning/progress.rs
// and analysis/convergence.rs, rewritten in the teacher's idiom.
package planning

import "strings"

// Weights for the five-factor complexity score. Their sum is 1.0 so the
// weighted combination stays within [0, 1] before the final clamp.
const (
	weightTools     = 0.20
	weightFiles     = 0.15
	weightCommands  = 0.25
	weightData      = 0.15
	weightAmbiguity = 0.25
)

// ComplexityLevel classifies an estimate into a coarse bucket used to pick
// a recommended iteration ceiling and model tier.
type ComplexityLevel int

const (
	ComplexitySimple ComplexityLevel = iota
	ComplexityMedium
	ComplexityComplex
)

// RecommendedIterations returns the iteration ceiling conventionally
// associated with this complexity bucket. The Iteration Budget Manager
// (engine.BudgetManager) uses the continuous score directly; this is only
// advisory, surfaced in telemetry and planner logs.
func (l ComplexityLevel) RecommendedIterations() int {
	switch l {
	case ComplexitySimple:
		return 5
	case ComplexityMedium:
		return 10
	default:
		return 15
	}
}

// RecommendedModel returns the model tier conventionally matched to this
// complexity bucket, for callers that can afford to size the model to the
// task rather than run one fixed model throughout.
func (l ComplexityLevel) RecommendedModel() string {
	switch l {
	case ComplexitySimple:
		return "qwen2.5:7b-instruct"
	case ComplexityMedium:
		return "qwen2.5:14b-instruct"
	default:
		return "qwen2.5:32b-instruct"
	}
}

// ComplexityEstimator scores a goal description on [0.0, 1.0] with a
// five-factor weighted sum: tool count, file operations, command
// complexity, data volume, and ambiguity. The estimate is monotone in each
// factor and bounded by construction.
type ComplexityEstimator struct{}

// NewComplexityEstimator returns an estimator using the standard weights.
func NewComplexityEstimator() *ComplexityEstimator {
	return &ComplexityEstimator{}
}

// Estimate scores a goal description. context is reserved for future
// factors that need surrounding conversation (none currently do) and may
// be nil.
func (e *ComplexityEstimator) Estimate(goal string, context []string) float64 {
	tools := estimateToolCount(goal)
	files := estimateFileOperations(goal)
	commands := estimateCommandComplexity(goal)
	data := estimateDataVolume(goal)
	ambiguity := estimateAmbiguity(goal)

	score := weightTools*tools + weightFiles*files + weightCommands*commands +
		weightData*data + weightAmbiguity*ambiguity

	return clamp01(score)
}

// Classify buckets a numeric estimate into a ComplexityLevel.
func (e *ComplexityEstimator) Classify(complexity float64) ComplexityLevel {
	switch {
	case complexity < 0.3:
		return ComplexitySimple
	case complexity < 0.7:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// estimateToolCount approximates the number of distinct tools a goal will
// need, normalized against a ceiling of 10.
func estimateToolCount(goal string) float64 {
	g := strings.ToLower(goal)
	var count int

	if containsAny(g, "read", "view", "show", "display") {
		count++
	}
	if containsAny(g, "write", "create", "save", "modify", "generate") {
		count++
	}
	if containsAny(g, "list", "find", "search") {
		count++
	}
	if containsAny(g, "analyze", "report", "statistics", "count") {
		count += 2
	}
	if containsAny(g, "run", "execute", "command") {
		count += 2
	}
	if containsAny(g, "system", "cpu", "memory", "disk") {
		count++
	}
	if containsAny(g, "fetch", "download", "http", "url") {
		count++
	}
	if containsAny(g, "all", "every", "each") {
		count += 3
	}

	return clamp01(float64(count) / 10.0)
}

// estimateFileOperations approximates how many filesystem operations a
// goal implies, normalized against a ceiling of 20.
func estimateFileOperations(goal string) float64 {
	g := strings.ToLower(goal)
	var count int

	for _, kw := range []string{"file", "directory", "folder", "path"} {
		if strings.Contains(g, kw) {
			count += 2
		}
	}
	if containsAny(g, "write", "modify", "update") {
		count += 2
	}
	if containsAny(g, "all files", "multiple") {
		count += 3
	}

	return clamp01(float64(count) / 20.0)
}

// estimateCommandComplexity scores shell/command involvement directly on
// [0, 1] without a normalization ceiling; the contributing factors can sum
// to 1.4, so the result is clamped to 1.0.
func estimateCommandComplexity(goal string) float64 {
	g := strings.ToLower(goal)
	var score float64

	if containsAny(g, "run", "execute", "command") {
		score += 0.3
	}
	if containsAny(g, "lines of code", "analyze", "complexity") {
		score += 0.4
	}
	if containsAny(g, "pipe", "|", ">") {
		score += 0.3
	}
	if containsAny(g, "and then", "after", "&&") {
		score += 0.2
	}
	if containsAny(g, "grep", "sed", "awk", "find") {
		score += 0.2
	}

	return clamp01(score)
}

// estimateDataVolume maps size-indicating keywords directly to a score; the
// largest matching indicator wins, it does not accumulate.
func estimateDataVolume(goal string) float64 {
	g := strings.ToLower(goal)
	var score float64

	if containsAny(g, "small", "few", "single") {
		score = 0.1
	}
	if containsAny(g, "several", "some") {
		score = 0.4
	}
	if containsAny(g, "large", "many", "all") {
		score = 0.7
	}
	if containsAny(g, "entire", "whole", "complete") {
		score = 0.9
	}

	return score
}

// estimateAmbiguity scores vagueness: hedge words, open questions, missing
// specifics, and goal length, offset by phrases that signal precision.
func estimateAmbiguity(goal string) float64 {
	g := strings.ToLower(goal)
	var score float64

	for _, word := range []string{"somehow", "maybe", "try", "attempt", "perhaps", "possibly"} {
		if strings.Contains(g, word) {
			score += 0.15
		}
	}
	if containsAny(g, "what", "how", "which") {
		score += 0.2
	}
	if !strings.Contains(g, "/") && !strings.Contains(g, ".") {
		score += 0.15
	}
	if len(goal) > 200 {
		score += 0.1
	}
	if containsAny(g, "exactly", "specifically") {
		score -= 0.2
	}

	return clamp01(score)
}
