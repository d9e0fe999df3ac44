package planning

import "strings"

// Utility function weights (spec §4's "pick the best of several candidate
// approaches" distilled from original_source's planning/strategies.rs).
const (
	utilWeightConfidence    = 0.50
	utilWeightCost          = 0.30
	utilWeightApplicability = 0.20
)

// StrategyGenerator proposes Direct, Exploratory, and Systematic
// approaches to a goal tree's root and scores them by a confidence/cost/
// applicability utility function, grounded on original_source's
// StrategyGenerator.
type StrategyGenerator struct {
	Estimator *ComplexityEstimator
}

// NewStrategyGenerator returns a generator using the standard weights.
func NewStrategyGenerator() *StrategyGenerator {
	return &StrategyGenerator{Estimator: NewComplexityEstimator()}
}

// Generate produces one strategy of each type for tree's root goal.
func (g *StrategyGenerator) Generate(tree *GoalTree) []Strategy {
	root := tree.Nodes[tree.Root]
	level := g.Estimator.Classify(root.Complexity)

	return []Strategy{
		g.direct(root, level),
		g.exploratory(root, level),
		g.systematic(root, tree, level),
	}
}

// Select returns the strategy with the highest utility score, or the zero
// Strategy and false if strategies is empty.
func (g *StrategyGenerator) Select(strategies []Strategy) (Strategy, bool) {
	if len(strategies) == 0 {
		return Strategy{}, false
	}
	best := strategies[0]
	bestUtility := g.utility(best)
	for _, s := range strategies[1:] {
		if u := g.utility(s); u > bestUtility {
			bestUtility = u
			best = s
		}
	}
	return best, true
}

func (g *StrategyGenerator) utility(s Strategy) float64 {
	return utilWeightConfidence*s.Confidence + utilWeightCost*(1-s.Cost) + utilWeightApplicability*s.Applicability
}

func (g *StrategyGenerator) direct(goal *GoalNode, level ComplexityLevel) Strategy {
	lower := strings.ToLower(goal.Description)

	confidence := map[ComplexityLevel]float64{ComplexitySimple: 0.9, ComplexityMedium: 0.6, ComplexityComplex: 0.3}[level]
	if containsAny(lower, "exactly", "specifically") {
		confidence = clamp01(confidence + 0.1)
	}
	if containsAny(lower, "maybe", "somehow") {
		confidence = clamp01(confidence - 0.2)
	}

	cost := map[ComplexityLevel]float64{ComplexitySimple: 0.2, ComplexityMedium: 0.4, ComplexityComplex: 0.7}[level]

	applicability := 0.5
	if containsAny(lower, "/", ".") {
		applicability = 0.8
	} else if containsAny(lower, "read", "write", "list") {
		applicability = 0.7
	}

	return Strategy{
		Name:          "Direct",
		Type:          StrategyDirect,
		Confidence:    confidence,
		Cost:          cost,
		Applicability: applicability,
		Steps: []PlanStep{
			{Description: "Execute: " + goal.Description},
		},
	}
}

func (g *StrategyGenerator) exploratory(goal *GoalNode, level ComplexityLevel) Strategy {
	lower := strings.ToLower(goal.Description)

	confidence := map[ComplexityLevel]float64{ComplexitySimple: 0.6, ComplexityMedium: 0.7, ComplexityComplex: 0.8}[level]
	cost := map[ComplexityLevel]float64{ComplexitySimple: 0.4, ComplexityMedium: 0.5, ComplexityComplex: 0.6}[level]

	applicability := 0.6
	if containsAny(lower, "what", "how", "which") {
		applicability = 0.9
	} else if containsAny(lower, "find", "search") {
		applicability = 0.8
	}

	return Strategy{
		Name:          "Exploratory",
		Type:          StrategyExploratory,
		Confidence:    confidence,
		Cost:          cost,
		Applicability: applicability,
		Steps: []PlanStep{
			{Description: "Gather information about the task", ExpectedTool: "list_dir"},
			{Description: "Analyze findings: " + goal.Description},
			{Description: "Execute based on analysis"},
		},
	}
}

func (g *StrategyGenerator) systematic(goal *GoalNode, tree *GoalTree, level ComplexityLevel) Strategy {
	confidence := map[ComplexityLevel]float64{ComplexitySimple: 0.5, ComplexityMedium: 0.8, ComplexityComplex: 0.9}[level]
	cost := map[ComplexityLevel]float64{ComplexitySimple: 0.6, ComplexityMedium: 0.7, ComplexityComplex: 0.8}[level]

	children := tree.Edges[tree.Root]
	applicability := 0.5
	if len(children) > 0 {
		applicability = 0.9
	} else if level == ComplexityComplex {
		applicability = 0.8
	}

	steps := []PlanStep{{Description: "Break down task into sub-goals"}}
	for i, childID := range children {
		if i >= 5 {
			break
		}
		if child, ok := tree.Nodes[childID]; ok {
			steps = append(steps, PlanStep{Description: "Complete: " + child.Description})
		}
	}

	return Strategy{
		Name:          "Systematic",
		Type:          StrategySystematic,
		Confidence:    confidence,
		Cost:          cost,
		Applicability: applicability,
		Steps:         steps,
	}
}
