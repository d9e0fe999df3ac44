package planning

// NodeID identifies a node within a GoalTree.
type NodeID int

// NodeType classifies a GoalNode as directly executable or still
// decomposable.
type NodeType int

const (
	NodeAtomic NodeType = iota
	NodeComposite
)

// GoalStatus tracks a node's execution lifecycle.
type GoalStatus int

const (
	GoalPending GoalStatus = iota
	GoalInProgress
	GoalCompleted
	GoalFailed
)

// GoalNode is one node of the decomposition DAG.
type GoalNode struct {
	ID           NodeID
	Description  string
	Type         NodeType
	Status       GoalStatus
	Confidence   float64
	Dependencies []NodeID
	Complexity   float64
	Depth        int
}

// GoalTree is the bounded decomposition DAG produced by the Hierarchical
// Planner: single root, max depth 5, max fanout 7 per node.
type GoalTree struct {
	Root     NodeID
	Nodes    map[NodeID]*GoalNode
	Edges    map[NodeID][]NodeID
	MaxDepth int
	MaxFanout int
	nextID   NodeID
}

// NewGoalTree creates a tree containing only its root node, initially typed
// Composite — decomposition may retype it Atomic if it turns out not to be
// decomposable further.
func NewGoalTree(rootDescription string, rootComplexity float64) *GoalTree {
	root := &GoalNode{
		ID:          0,
		Description: rootDescription,
		Type:        NodeComposite,
		Status:      GoalPending,
		Confidence:  1.0,
		Complexity:  rootComplexity,
		Depth:       0,
	}
	return &GoalTree{
		Root:      0,
		Nodes:     map[NodeID]*GoalNode{0: root},
		Edges:     map[NodeID][]NodeID{},
		MaxDepth:  5,
		MaxFanout: 7,
		nextID:    1,
	}
}

// AddChild attaches a new child node under parentID, enforcing the tree's
// depth and fanout bounds. Violating either is a caller bug, not a runtime
// condition — both bounds are checked before any planner code can call
// AddChild beyond them, so this returns an error rather than panicking, to
// let callers such as decomposeRecursive degrade to "stop decomposing"
// instead of crashing a whole run.
func (t *GoalTree) AddChild(parentID NodeID, description string, nodeType NodeType, complexity float64) (NodeID, error) {
	parent, ok := t.Nodes[parentID]
	if !ok {
		return 0, &nodeNotFound{parentID}
	}

	childDepth := parent.Depth + 1
	if childDepth > t.MaxDepth {
		return 0, &depthExceeded{t.MaxDepth}
	}
	if len(t.Edges[parentID]) >= t.MaxFanout {
		return 0, &fanoutExceeded{t.MaxFanout, parentID}
	}

	childID := t.nextID
	t.nextID++

	t.Nodes[childID] = &GoalNode{
		ID:           childID,
		Description:  description,
		Type:         nodeType,
		Status:       GoalPending,
		Confidence:   0.8,
		Dependencies: []NodeID{parentID},
		Complexity:   complexity,
		Depth:        childDepth,
	}
	t.Edges[parentID] = append(t.Edges[parentID], childID)

	return childID, nil
}

// LeafNodes returns every node with no children — the atomic goals ready
// for direct tool dispatch.
func (t *GoalTree) LeafNodes() []*GoalNode {
	var leaves []*GoalNode
	for id, node := range t.Nodes {
		if len(t.Edges[id]) == 0 {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// AllChildrenCompleted reports whether every child of nodeID (if any) has
// reached GoalCompleted. A node with no children is vacuously true.
func (t *GoalTree) AllChildrenCompleted(nodeID NodeID) bool {
	children, ok := t.Edges[nodeID]
	if !ok {
		return true
	}
	for _, childID := range children {
		child, ok := t.Nodes[childID]
		if !ok || child.Status != GoalCompleted {
			return false
		}
	}
	return true
}

// UpdateStatus sets nodeID's status, returning an error if the node does
// not exist.
func (t *GoalTree) UpdateStatus(nodeID NodeID, status GoalStatus) error {
	node, ok := t.Nodes[nodeID]
	if !ok {
		return &nodeNotFound{nodeID}
	}
	node.Status = status
	return nil
}

type nodeNotFound struct{ id NodeID }

func (e *nodeNotFound) Error() string { return "planning: node not found" }

type depthExceeded struct{ max int }

func (e *depthExceeded) Error() string { return "planning: max depth exceeded" }

type fanoutExceeded struct {
	max      int
	parentID NodeID
}

func (e *fanoutExceeded) Error() string { return "planning: max fanout exceeded" }

// StrategyType names one of the three planning approaches the Strategy
// Generator scores against a goal.
type StrategyType int

const (
	StrategyDirect StrategyType = iota
	StrategyExploratory
	StrategySystematic
)

func (t StrategyType) String() string {
	switch t {
	case StrategyDirect:
		return "Direct"
	case StrategyExploratory:
		return "Exploratory"
	default:
		return "Systematic"
	}
}

// PlanStep is one step of a Strategy's plan.
type PlanStep struct {
	Description  string
	ExpectedTool string
	Completed    bool
}

// Strategy is one candidate approach to a goal, scored by confidence, cost,
// and applicability so the planner can pick a winner by utility.
type Strategy struct {
	Name          string
	Type          StrategyType
	Confidence    float64
	Cost          float64
	Applicability float64
	Steps         []PlanStep
}

// ProgressMetrics is the Progress Tracker's (C11) composite score.
type ProgressMetrics struct {
	GoalCompletion     float64
	ToolSuccessRate    float64
	MilestoneProgress  float64
	OverallProgress    float64
	StagnantIterations int
}

// CalculateOverall recomputes OverallProgress from the three weighted
// components (0.40/0.30/0.30), the monotone composite used by the
// Convergence Detector.
func (m *ProgressMetrics) CalculateOverall() {
	m.OverallProgress = 0.40*m.GoalCompletion + 0.30*m.ToolSuccessRate + 0.30*m.MilestoneProgress
}
