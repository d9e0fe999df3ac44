package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentcore/agentcore/internal/config"
	"github.com/agentcore/agentcore/internal/llmstream"
	"github.com/agentcore/agentcore/internal/planning"
	"github.com/agentcore/agentcore/internal/recovery"
	"github.com/agentcore/agentcore/internal/telemetry"
	"github.com/agentcore/agentcore/internal/tools"
	"github.com/agentcore/agentcore/internal/tools/filesystem"
)

const systemPrompt = `You are an autonomous terminal assistant. Respond with one JSON object per ` +
	`turn: {"tool": "<name>", "arguments": {...}} to invoke one tool, {"tools": [{"tool": "<name>", ` +
	`"arguments": {...}}, ...]} to invoke several independent tools in parallel, {"final": "<answer>"} ` +
	`when the goal is satisfied, or {"thought": "<text>"} to reason without acting.`

// maxConsecutiveToolFailures is the number of consecutive failed tool
// iterations runToolIteration tolerates before escalating to Adaptive
// Recovery (spec §4.13's ToolExecutionFailure symptom).
const maxConsecutiveToolFailures = 3

// memoryRecallK bounds how many Memory Store records buildPrompt surfaces
// per turn.
const memoryRecallK = 5

// Orchestrator (C15) is the end-to-end control loop: it drives one Task
// through the FSM, dispatching the streaming LLM client, the tool runtime,
// the planner, the progress/convergence trackers, and adaptive recovery,
// publishing every state change onto the telemetry Bus.
type Orchestrator struct {
	Config config.View

	LLM   *llmstream.Client
	Tools *tools.Runtime
	Bus   *telemetry.Bus

	BudgetMgr  *BudgetManager
	Complexity *planning.ComplexityEstimator
	Planner    *planning.HierarchicalPlanner
	Strategies *planning.StrategyGenerator
	Recovery   *recovery.AdaptiveRecovery

	// Watcher invalidates stale Memory Store recall entries when a file an
	// earlier observation referenced changes out of band. Nil if the
	// working root couldn't be watched (e.g. it doesn't exist yet); the
	// orchestrator runs fine without it, just without that invalidation.
	Watcher *filesystem.Watcher
}

// NewOrchestrator wires the components above using cfg's limits. llm and
// rt must already be configured (endpoint, jail root, registry); bus may
// be nil, in which case a private one is created so callers that don't
// care about telemetry don't have to wire it.
func NewOrchestrator(cfg config.View, llm *llmstream.Client, rt *tools.Runtime, bus *telemetry.Bus) *Orchestrator {
	if bus == nil {
		bus = telemetry.NewBus()
	}
	o := &Orchestrator{
		Config:     cfg,
		LLM:        llm,
		Tools:      rt,
		Bus:        bus,
		BudgetMgr:  NewBudgetManager(),
		Complexity: planning.NewComplexityEstimator(),
		Strategies: planning.NewStrategyGenerator(),
		Recovery:   recovery.New(),
	}
	o.Planner = planning.NewHierarchicalPlanner(o.generateSubgoals)
	if w, err := filesystem.NewWatcher(cfg.WorkingRoot); err == nil {
		o.Watcher = w
	}
	if rt != nil {
		rt.CallTimeout = cfg.DefaultToolTimeout()
		rt.Retry = tools.RetryPolicy{
			InitialDelay: DefaultToolRetryPolicy.InitialDelay,
			MaxDelay:     DefaultToolRetryPolicy.MaxDelay,
			Multiplier:   DefaultToolRetryPolicy.Multiplier,
			WallClockCap: DefaultToolRetryWallClockCap,
		}
	}
	return o
}

// Run drives task to completion, returning the final answer text or the
// error that stopped the run (including a *BudgetExhausted once the
// Iteration Budget Manager's allocation is consumed without a final
// answer).
func (o *Orchestrator) Run(ctx context.Context, task Task) (string, error) {
	complexity := o.Complexity.Estimate(task.GoalText, nil)
	state := NewState(task, o.BudgetMgr, complexity)
	state.Window.HardLimit = o.Config.HardTokenLimit
	state.Window.SoftLimit = o.Config.SoftTokenLimit
	state.Window.TargetLimit = o.Config.TargetTokenLimit

	state.Window.Append(Entry{Kind: EntrySystem, Text: systemPrompt})
	state.Window.Append(Entry{Kind: EntryGoal, Text: task.GoalText})

	tree, err := o.Planner.Decompose(ctx, task.GoalText, nil)
	if err != nil {
		tree = planning.NewGoalTree(task.GoalText, complexity)
	}
	progress := planning.NewProgressTracker(tree)
	convergence := planning.NewConvergenceDetector()
	cursor := newGoalCursor(tree)

	if err := state.Machine.Fire(EventTaskAccepted); err != nil {
		return "", err
	}
	o.publish(telemetry.EventStateChanged, task.ID, state.Phase())

	for !state.Machine.IsTerminal() {
		if state.Budget.Exhausted {
			return o.fail(state, &BudgetExhausted{Allocated: state.Budget.Allocated, Consumed: state.Budget.Consumed})
		}

		o.publish(telemetry.EventIterationStarted, task.ID, state.Step)
		o.drainWatcher(state)

		msg, err := o.nextMessage(ctx, state)
		if err != nil {
			return o.handleStreamError(ctx, state, progress, convergence, err)
		}
		state.Append(msg)

		switch msg.Kind {
		case MsgFinal:
			if err := state.Machine.Fire(EventFinalAnswer); err != nil {
				return o.fail(state, err)
			}
			o.publish(telemetry.EventTaskFinished, task.ID, msg.Text)
			return msg.Text, nil

		case MsgToolCall:
			if err := o.runToolIteration(ctx, state, progress, convergence, cursor, msg); err != nil {
				return o.handleToolError(ctx, state, progress, convergence, err)
			}

		case MsgThought:
			// Thoughts cost an iteration but require no dispatch: no tool
			// ran, so the FSM stays in Planning and only the budget is
			// consumed.
			state.Budget.Consume()
			if warn := state.Budget.CheckWarning(); warn != BudgetWarningNone {
				o.publish(telemetry.EventIterationStarted, task.ID, warn)
			}
		}

		state.Step++
	}

	return "", &Cancelled{Reason: "state machine reached terminal state without a final answer"}
}

// runToolIteration executes one Planning -> Executing -> Verifying cycle
// for a tool-call message, then decides (via the convergence detector)
// whether to continue iterating or declare the goal achieved. A batched
// {"tools": [...]} turn dispatches through the Tool Runtime's bounded
// parallel executor (spec §5's invoke_parallel); a single-tool turn runs
// through the ordinary single-call path.
func (o *Orchestrator) runToolIteration(ctx context.Context, state *State, progress *planning.ProgressTracker, convergence *planning.ConvergenceDetector, cursor *goalCursor, msg AgentMessage) error {
	if err := state.Machine.Fire(EventToolCall); err != nil {
		return err
	}

	calls := msg.ToolCalls
	if len(calls) == 0 {
		calls = []ToolCall{{ToolName: msg.ToolName, Arguments: msg.Arguments}}
	}

	invs := make([]tools.Invocation, len(calls))
	for i, c := range calls {
		o.publish(telemetry.EventToolInvoked, state.Task.ID, c.ToolName)
		invs[i] = tools.Invocation{ToolName: c.ToolName, Args: c.Arguments, PathArg: pathArgOf(c.Arguments)}
	}

	var observations []tools.Observation
	if len(invs) > 1 {
		observations = o.Tools.ExecuteParallel(ctx, invs)
	} else {
		observations = []tools.Observation{o.Tools.Execute(ctx, invs[0])}
	}

	allSucceeded := true
	for _, obs := range observations {
		o.publish(telemetry.EventToolCompleted, state.Task.ID, obs.Err == nil)
		progress.UpdateToolExecution(obs.Err == nil)
		if obs.Err != nil {
			allSucceeded = false
		}

		digest := Digest(obs.Invocation.ToolName, obs.Invocation.Args)
		summary := observationSummary(obs)
		state.Memory.Record(obs.Invocation.ToolName, digest, summary)
		state.Window.Append(Entry{Kind: EntryObservation, Text: summary})
	}
	if err := state.Window.CompressIfNeeded(); err != nil {
		return err
	}

	if err := state.Machine.Fire(EventToolComplete); err != nil {
		return err
	}

	state.Budget.Consume()
	if warn := state.Budget.CheckWarning(); warn != BudgetWarningNone {
		o.publish(telemetry.EventIterationStarted, state.Task.ID, warn)
	}

	if allSucceeded {
		state.Retries = 0
		cursor.advance(progress)
	} else {
		state.Retries++
		if state.Retries >= maxConsecutiveToolFailures {
			return toolFailureError(observations)
		}
	}

	convergence.RecordProgress(progress.Metrics().OverallProgress, state.Step)
	o.publish(telemetry.EventProgressUpdated, state.Task.ID, progress.Summary())

	if progress.IsStagnant() {
		progress.ResetStagnant()
	}

	termination := convergence.CheckTermination(progress.Metrics().OverallProgress, validationScoreOf(observations[len(observations)-1]), state.Budget.Consumed, state.Budget.Allocated)
	if termination == planning.TerminationSuccess {
		return state.Machine.Fire(EventGoalAchieved)
	}
	return state.Machine.Fire(EventContinueIteration)
}

// toolFailureError picks the first failed observation of a batch and
// classifies it into the spec §7 taxonomy recoverySymptomFor expects,
// preferring ToolTimeout when the failure was a per-call deadline.
func toolFailureError(observations []tools.Observation) error {
	for _, obs := range observations {
		if obs.Err == nil {
			continue
		}
		if errors.Is(obs.Err, context.DeadlineExceeded) {
			return &ToolTimeout{ToolName: obs.Invocation.ToolName, Timeout: obs.Duration}
		}
		return &ToolExecError{ToolName: obs.Invocation.ToolName, Err: obs.Err}
	}
	return nil
}

// goalCursor walks a GoalTree's leaf nodes in ID order, marking one as
// complete on every fully-successful tool iteration and propagating
// completion up through every ancestor whose children have all finished —
// a composite ancestor at depth 1-2 becomes a reached milestone on the way
// up. This is what feeds the Progress Tracker's goal_fraction (w=0.40) and
// milestone_fraction (w=0.30) components from the real control loop
// instead of leaving them permanently zero.
type goalCursor struct {
	tree   *planning.GoalTree
	leaves []*planning.GoalNode
	next   int
}

func newGoalCursor(tree *planning.GoalTree) *goalCursor {
	leaves := tree.LeafNodes()
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].ID < leaves[j].ID })
	return &goalCursor{tree: tree, leaves: leaves}
}

func (c *goalCursor) advance(progress *planning.ProgressTracker) {
	if c.next >= len(c.leaves) {
		return
	}
	leaf := c.leaves[c.next]
	c.next++
	c.completeUp(leaf.ID, progress)
}

// completeUp marks nodeID GoalCompleted and, once every sibling under its
// parent has also completed, recurses upward — so a whole subtree's
// completion bubbles all the way to the root exactly once.
func (c *goalCursor) completeUp(nodeID planning.NodeID, progress *planning.ProgressTracker) {
	node, ok := c.tree.Nodes[nodeID]
	if !ok {
		return
	}
	_ = c.tree.UpdateStatus(nodeID, planning.GoalCompleted)
	progress.UpdateGoalCompletion(nodeID)

	if node.Depth >= 1 && node.Depth <= 2 && len(c.tree.Edges[nodeID]) > 0 {
		progress.UpdateMilestone(node.Description)
	}

	for _, parentID := range node.Dependencies {
		if c.tree.AllChildrenCompleted(parentID) {
			c.completeUp(parentID, progress)
		}
	}
}

// handleToolError translates a tool-iteration failure into an
// AdaptiveRecovery decision, publishing the chosen action and either
// retrying (ContinueIteration) or aborting (FatalError).
func (o *Orchestrator) handleToolError(ctx context.Context, state *State, progress *planning.ProgressTracker, convergence *planning.ConvergenceDetector, err error) (string, error) {
	symptom := recoverySymptomFor(err, state)
	pattern := o.Recovery.DetectPattern(symptom)
	action := o.Recovery.SelectRecoveryAction(pattern)
	o.publish(telemetry.EventRecoveryAction, state.Task.ID, action.Kind)

	if action.Kind == recovery.ActionAbort {
		return o.fail(state, err)
	}
	if action.Kind == recovery.ActionRetryWithBackoff {
		select {
		case <-time.After(action.Delay):
		case <-ctx.Done():
			return o.fail(state, ctx.Err())
		}
	}
	if state.Machine.Current() != StateVerifying {
		// The failure happened before ToolComplete fired; there is no
		// valid edge back to Planning except through Verifying, so treat
		// an execution-phase failure as reaching Verifying with no
		// progress, then continue.
		_ = state.Machine.Fire(EventToolComplete)
	}
	if err := state.Machine.Fire(EventContinueIteration); err != nil {
		return o.fail(state, err)
	}
	state.Step++
	return "", nil
}

// handleStreamError applies the same recovery decision flow to a streaming
// LLM failure (TransportError/StreamInterrupted), which occurs in Planning
// before any tool has been selected.
func (o *Orchestrator) handleStreamError(ctx context.Context, state *State, progress *planning.ProgressTracker, convergence *planning.ConvergenceDetector, err error) (string, error) {
	symptom := recoverySymptomFor(err, state)
	pattern := o.Recovery.DetectPattern(symptom)
	action := o.Recovery.SelectRecoveryAction(pattern)
	o.publish(telemetry.EventRecoveryAction, state.Task.ID, action.Kind)

	if action.Kind == recovery.ActionAbort {
		return o.fail(state, err)
	}
	if action.Kind == recovery.ActionRetryWithBackoff {
		select {
		case <-time.After(action.Delay):
			state.Step++
			return "", nil
		case <-ctx.Done():
			return o.fail(state, ctx.Err())
		}
	}
	state.Step++
	return "", nil
}

// nextMessage streams one completion from the LLM, feeding it through the
// Extractor, and returns the first parsed AgentMessage. Transport retries
// follow DefaultLLMRetryPolicy.
func (o *Orchestrator) nextMessage(ctx context.Context, state *State) (AgentMessage, error) {
	prompt := buildPrompt(state)

	fn := func(ctx context.Context) (AgentMessage, error) {
		return o.streamOnce(ctx, prompt, state.Task.ID)
	}

	return RetryWithPolicy(ctx, DefaultLLMRetryPolicy, fn, ClassifyLLMError, func(attempt int, delay time.Duration, err error) {
		o.publish(telemetry.EventRecoveryAction, state.Task.ID, fmt.Sprintf("llm retry %d after %v: %v", attempt, delay, err))
	})
}

func (o *Orchestrator) streamOnce(ctx context.Context, prompt, taskID string) (AgentMessage, error) {
	envs, errs := o.LLM.Stream(ctx, prompt, llmstream.Options{"temperature": 0.7})
	extractor := NewExtractor()

	var lastErr error
	for env := range envs {
		o.publish(telemetry.EventTokenReceived, taskID, len(env.Response))
		extractor.Push(env.Response)

		objs, err := extractor.Drain()
		if err != nil {
			return AgentMessage{}, err
		}
		for _, obj := range objs {
			msg, perr := ParseAgentMessage(obj.Raw)
			if perr == nil {
				return msg, nil
			}
		}
	}
	select {
	case lastErr = <-errs:
	default:
	}
	if lastErr != nil {
		return AgentMessage{}, lastErr
	}
	return AgentMessage{}, &NoActionableOutput{}
}

// generateSubgoals implements planning.SubgoalGenerator on top of the
// orchestrator's own streaming client, grounded on original_source's
// HierarchicalPlanner.generate_subgoals: a dedicated planning prompt whose
// response is expected to be a bare JSON array of step strings (or an
// empty array when the goal is already atomic).
func (o *Orchestrator) generateSubgoals(ctx context.Context, goal string, context []string) ([]string, error) {
	contextStr := ""
	if len(context) > 0 {
		contextStr = "\n\nContext from previous steps:\n" + strings.Join(context, "\n")
	}
	prompt := fmt.Sprintf(`Break down the following task into concrete steps. Return ONLY a JSON array of step descriptions, or an empty array [] if the task is already atomic.

TASK: %s%s

STEPS:`, goal, contextStr)

	envs, errs := o.LLM.Stream(ctx, prompt, llmstream.Options{"temperature": 0.7, "num_predict": 500})

	var sb strings.Builder
	for env := range envs {
		sb.WriteString(env.Response)
	}
	select {
	case err := <-errs:
		if err != nil {
			return nil, nil // decomposition is best-effort; fall back to atomic
		}
	default:
	}

	text := strings.TrimSpace(sb.String())
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < start {
		return nil, nil
	}

	var steps []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &steps); err != nil {
		return nil, nil
	}
	return steps, nil
}

// drainWatcher invalidates Memory Store entries for every filesystem change
// reported since the last drain, without blocking when nothing changed.
func (o *Orchestrator) drainWatcher(state *State) {
	if o.Watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-o.Watcher.Events():
			if !ok {
				o.Watcher = nil
				return
			}
			state.Memory.InvalidateByPath(path)
		default:
			return
		}
	}
}

func (o *Orchestrator) publish(kind telemetry.EventKind, taskID string, payload any) {
	o.Bus.Publish(telemetry.Event{Kind: kind, TaskID: taskID, Payload: payload})
}

func (o *Orchestrator) fail(state *State, err error) (string, error) {
	_ = state.Machine.Fire(EventFatalError)
	o.publish(telemetry.EventTaskFinished, state.Task.ID, err.Error())
	return "", WrapWithContext(err, state, "orchestrator.Run", "")
}

// buildPrompt renders the Memory Store's recall for the current goal
// (spec §2's data flow: recall feeds prompt assembly, not just future
// dedup) ahead of the context window's entries, then the window itself, as
// a single prompt string for the streaming client.
func buildPrompt(state *State) string {
	var sb strings.Builder

	if recalled := state.Memory.Recall(state.Task.GoalText, memoryRecallK); len(recalled) > 0 {
		sb.WriteString("relevant prior observations:\n")
		for _, r := range recalled {
			sb.WriteString(fmt.Sprintf("- %s(%s): %s\n", r.ToolName, r.ArgDigest, r.ObservationSummary))
		}
		sb.WriteString("\n")
	}

	for _, e := range state.Window.Entries() {
		sb.WriteString(string(e.Kind))
		sb.WriteString(": ")
		sb.WriteString(e.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func pathArgOf(args map[string]any) string {
	if p, ok := args["path"].(string); ok {
		return p
	}
	return ""
}

func observationSummary(obs tools.Observation) string {
	if obs.Err != nil {
		return fmt.Sprintf("%s -> error: %v", obs.Invocation.ToolName, obs.Err)
	}
	out := obs.Output
	if len(out) > 500 {
		out = out[:500] + "...(truncated)"
	}
	return fmt.Sprintf("%s -> %s", obs.Invocation.ToolName, out)
}

// validationScoreOf derives a crude validation score in [0,1] from whether
// the tool call succeeded; a real validation pass (re-checking the goal
// against the observation with the LLM) is out of scope here and left as
// an Open Question resolution in DESIGN.md.
func validationScoreOf(obs tools.Observation) float64 {
	if obs.Err != nil {
		return 0
	}
	return 1
}

// recoverySymptomFor classifies an orchestrator-level error into the
// FailureSymptom taxonomy AdaptiveRecovery expects.
func recoverySymptomFor(err error, state *State) recovery.FailureSymptom {
	switch e := err.(type) {
	case *ToolTimeout:
		return recovery.FailureSymptom{Kind: recovery.Timeout, Operation: e.ToolName}
	case *ToolExecError:
		return recovery.FailureSymptom{Kind: recovery.ToolExecutionFailure, ToolName: e.ToolName, ConsecutiveFailures: state.Retries}
	case *BudgetExhausted:
		return recovery.FailureSymptom{Kind: recovery.BudgetExhaustion, Used: e.Consumed, Allocated: e.Allocated}
	case *TransportError, *StreamInterrupted:
		return recovery.FailureSymptom{Kind: recovery.Timeout, Operation: "llm_stream"}
	default:
		_ = e
		return recovery.FailureSymptom{Kind: recovery.UnknownFailure}
	}
}
