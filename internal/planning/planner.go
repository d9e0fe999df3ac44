package planning

import "context"

// atomicThreshold below this complexity a sub-goal decomposes into no
// further children and is marked atomic, matching original_source's
// HierarchicalPlanner.
const atomicThreshold = 0.2

// SubgoalGenerator proposes a flat list of sub-goal descriptions for a
// goal, or an empty slice if the goal should be treated as atomic. The
// Hierarchical Planner is LLM-driven — original_source's HierarchicalPlanner
// calls back into the Ollama client with a decomposition prompt — but the
// planner package itself must not import internal/llmstream (the
// orchestrator wires both together), so the caller supplies this as a
// closure over a streaming client.
type SubgoalGenerator func(ctx context.Context, goal string, context []string) ([]string, error)

// HierarchicalPlanner decomposes a goal into a bounded GoalTree using
// top-down recursive LLM-assisted decomposition, grounded on
// original_source's planning/hierarchical.rs.
type HierarchicalPlanner struct {
	Estimator *ComplexityEstimator
	Generate  SubgoalGenerator
}

// NewHierarchicalPlanner builds a planner. generate may be nil, in which
// case every goal is treated as atomic (the teacher's "no client" path).
func NewHierarchicalPlanner(generate SubgoalGenerator) *HierarchicalPlanner {
	return &HierarchicalPlanner{
		Estimator: NewComplexityEstimator(),
		Generate:  generate,
	}
}

// Decompose builds a GoalTree for goal, recursing up to the tree's max
// depth and fanning out up to its max fanout per node.
func (p *HierarchicalPlanner) Decompose(ctx context.Context, goal string, context []string) (*GoalTree, error) {
	complexity := p.Estimator.Estimate(goal, context)
	tree := NewGoalTree(goal, complexity)

	if err := p.decomposeRecursive(ctx, tree, tree.Root, 0, context); err != nil {
		return nil, err
	}
	return tree, nil
}

func (p *HierarchicalPlanner) decomposeRecursive(ctx context.Context, tree *GoalTree, parentID NodeID, depth int, context []string) error {
	if depth >= tree.MaxDepth {
		return nil
	}

	parent, ok := tree.Nodes[parentID]
	if !ok {
		return &nodeNotFound{parentID}
	}

	subGoals, err := p.generateSubgoals(ctx, parent.Description, context)
	if err != nil {
		return err
	}

	if len(subGoals) == 0 {
		parent.Type = NodeAtomic
		return nil
	}

	if len(subGoals) > tree.MaxFanout {
		subGoals = subGoals[:tree.MaxFanout]
	}

	for _, subGoal := range subGoals {
		complexity := p.Estimator.Estimate(subGoal, context)
		nodeType := NodeComposite
		if complexity < atomicThreshold {
			nodeType = NodeAtomic
		}

		childID, err := tree.AddChild(parentID, subGoal, nodeType, complexity)
		if err != nil {
			return err
		}

		if nodeType == NodeComposite {
			if err := p.decomposeRecursive(ctx, tree, childID, depth+1, context); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *HierarchicalPlanner) generateSubgoals(ctx context.Context, goal string, context []string) ([]string, error) {
	if p.Generate == nil {
		return nil, nil
	}
	return p.Generate(ctx, goal, context)
}
