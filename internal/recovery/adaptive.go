// Package recovery implements the Adaptive Recovery component (C13):
// failure-pattern recognition and recovery-action selection, ported from
// original_source's recovery/adaptive.rs and recovery/types.rs.
package recovery

import (
	"fmt"
	"time"
)

// FailureSymptomKind classifies the kind of failure observed by the
// orchestrator before it asks AdaptiveRecovery what to do about it.
type FailureSymptomKind int

const (
	ToolExecutionFailure FailureSymptomKind = iota
	ValidationFailure
	StagnationFailure
	BudgetExhaustion
	Timeout
	UnknownFailure
)

// FailureSymptom is the orchestrator's report of what went wrong. Which
// fields are meaningful depends on Kind; see the field comments.
type FailureSymptom struct {
	Kind FailureSymptomKind

	ToolName             string // ToolExecutionFailure
	ConsecutiveFailures  int    // ToolExecutionFailure

	Score     int // ValidationFailure, 0-100
	Threshold int // ValidationFailure, 0-100

	IterationsStagnant int // StagnationFailure

	Used, Allocated int // BudgetExhaustion

	Operation string // Timeout
}

// key identifies a symptom for history deduplication — same shape as
// original_source's format!("{:?}", symptom) key, but built from just the
// fields that distinguish a repeat of "the same kind of failure" rather
// than every field (consecutive_failures changes call to call and should
// not fragment the pattern's identity).
func (s FailureSymptom) key() string {
	switch s.Kind {
	case ToolExecutionFailure:
		return fmt.Sprintf("tool_execution_failure:%s", s.ToolName)
	case ValidationFailure:
		return fmt.Sprintf("validation_failure:%d", s.Threshold)
	case StagnationFailure:
		return "stagnation_failure"
	case BudgetExhaustion:
		return "budget_exhaustion"
	case Timeout:
		return fmt.Sprintf("timeout:%s", s.Operation)
	default:
		return "unknown"
	}
}

// Severity returns a 0-10 urgency score for telemetry and logging.
func (s FailureSymptom) Severity() int {
	switch s.Kind {
	case BudgetExhaustion:
		return 9
	case ValidationFailure:
		return 7
	case StagnationFailure:
		return 6
	case ToolExecutionFailure:
		if s.ConsecutiveFailures > 8 {
			return 8
		}
		return s.ConsecutiveFailures
	case Timeout:
		return 5
	default:
		return 3
	}
}

// Description renders a human-readable summary of the symptom.
func (s FailureSymptom) Description() string {
	switch s.Kind {
	case ToolExecutionFailure:
		return fmt.Sprintf("tool %q failed %d times consecutively", s.ToolName, s.ConsecutiveFailures)
	case ValidationFailure:
		return fmt.Sprintf("validation score %d%% below threshold %d%%", s.Score, s.Threshold)
	case StagnationFailure:
		return fmt.Sprintf("no progress for %d iterations", s.IterationsStagnant)
	case BudgetExhaustion:
		return fmt.Sprintf("budget exhausted: %d/%d iterations used", s.Used, s.Allocated)
	case Timeout:
		return fmt.Sprintf("timeout during: %s", s.Operation)
	default:
		return "unknown failure"
	}
}

// FailurePattern tracks how often and how recently a symptom has recurred.
type FailurePattern struct {
	Symptom   FailureSymptom
	Frequency int
	FirstSeen time.Time
	LastSeen  time.Time
}

const recentWindow = 5 * time.Minute

// IsRecent reports whether the pattern was last seen within the recency
// window used to bound the failure history.
func (p FailurePattern) IsRecent(now time.Time) bool {
	return now.Sub(p.LastSeen) < recentWindow
}

// RecoveryActionKind names one of the seven actions AdaptiveRecovery can
// select.
type RecoveryActionKind int

const (
	ActionRotateStrategy RecoveryActionKind = iota
	ActionReduceParallelism
	ActionRelaxValidation
	ActionReassessComplexity
	ActionRetryWithBackoff
	ActionSimplifyApproach
	ActionAbort
)

// RecoveryAction is the outcome of SelectRecoveryAction.
type RecoveryAction struct {
	Kind RecoveryActionKind

	From, To     int           // ActionReduceParallelism
	NewThreshold int           // ActionRelaxValidation
	Attempt      int           // ActionRetryWithBackoff
	Delay        time.Duration // ActionRetryWithBackoff
	Reason       string        // ActionAbort
}

// Priority returns the action's urgency, higher is more urgent — used when
// an orchestrator must choose among several pending recovery signals.
func (a RecoveryAction) Priority() int {
	switch a.Kind {
	case ActionAbort:
		return 10
	case ActionReassessComplexity:
		return 8
	case ActionRotateStrategy:
		return 7
	case ActionReduceParallelism:
		return 6
	case ActionSimplifyApproach:
		return 5
	case ActionRelaxValidation:
		return 4
	default:
		return 3
	}
}

// Strategy names one of the three planning approaches recovery can rotate
// through, mirroring planning.StrategyType without importing the planning
// package (recovery only needs the name/rotation, not the scoring).
type Strategy int

const (
	StrategyDirect Strategy = iota
	StrategyExploratory
	StrategySystematic
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "Direct"
	case StrategyExploratory:
		return "Exploratory"
	default:
		return "Systematic"
	}
}

func rotationOrder() []Strategy {
	return []Strategy{StrategyDirect, StrategyExploratory, StrategySystematic}
}

// Config tunes AdaptiveRecovery. Defaults mirror original_source's
// RecoveryConfig.
type Config struct {
	MaxStrategyAttempts int
	MaxHistorySize      int
	ParallelismLevels   []int
	AggressiveRecovery  bool
}

// DefaultConfig returns original_source's tuned defaults.
func DefaultConfig() Config {
	return Config{
		MaxStrategyAttempts: 3,
		MaxHistorySize:      50,
		ParallelismLevels:   []int{4, 2, 1},
		AggressiveRecovery:  false,
	}
}

// AdaptiveRecovery (C13) matches failure symptoms to recovery actions,
// tracking a bounded pattern history and rotating through planning
// strategies when repeated failures call for a change of approach.
type AdaptiveRecovery struct {
	config Config

	failureHistory map[string]*FailurePattern

	strategyRotation    []Strategy
	currentStrategyIdx  int
	strategyAttempts    map[Strategy]int
	parallelismIdx      int

	now func() time.Time
}

// New returns an AdaptiveRecovery using DefaultConfig.
func New() *AdaptiveRecovery {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig returns an AdaptiveRecovery using a custom config.
func NewWithConfig(cfg Config) *AdaptiveRecovery {
	rotation := rotationOrder()
	attempts := make(map[Strategy]int, len(rotation))
	for _, s := range rotation {
		attempts[s] = 0
	}
	return &AdaptiveRecovery{
		config:           cfg,
		failureHistory:   map[string]*FailurePattern{},
		strategyRotation: rotation,
		strategyAttempts: attempts,
		now:              time.Now,
	}
}

// DetectPattern records symptom in the failure history, bumping the
// matching pattern's frequency if one already exists, and returns the
// (possibly new) pattern.
func (r *AdaptiveRecovery) DetectPattern(symptom FailureSymptom) FailurePattern {
	key := symptom.key()
	now := r.now()

	if existing, ok := r.failureHistory[key]; ok {
		existing.Frequency++
		existing.LastSeen = now
		existing.Symptom = symptom
		return *existing
	}

	pattern := &FailurePattern{Symptom: symptom, Frequency: 1, FirstSeen: now, LastSeen: now}
	r.failureHistory[key] = pattern

	if len(r.failureHistory) > r.config.MaxHistorySize {
		r.pruneOldPatterns()
	}
	return *pattern
}

// SelectRecoveryAction maps a failure pattern to the action the
// orchestrator should take, following original_source's symptom-to-action
// table.
func (r *AdaptiveRecovery) SelectRecoveryAction(pattern FailurePattern) RecoveryAction {
	current := r.CurrentStrategy()
	attempts := r.strategyAttempts[current]

	switch pattern.Symptom.Kind {
	case ToolExecutionFailure:
		if pattern.Symptom.ConsecutiveFailures >= 3 {
			if attempts < r.config.MaxStrategyAttempts {
				return RecoveryAction{Kind: ActionRotateStrategy}
			}
			return RecoveryAction{Kind: ActionAbort, Reason: "tool execution failing persistently"}
		}
		delay := 100 * time.Millisecond
		for i := 0; i < pattern.Symptom.ConsecutiveFailures; i++ {
			delay *= 2
		}
		return RecoveryAction{Kind: ActionRetryWithBackoff, Attempt: pattern.Symptom.ConsecutiveFailures, Delay: delay}

	case ValidationFailure:
		if pattern.Symptom.Score >= 75 && pattern.Symptom.Threshold > 75 {
			return RecoveryAction{Kind: ActionRelaxValidation, NewThreshold: 75}
		}
		if attempts < r.config.MaxStrategyAttempts {
			return RecoveryAction{Kind: ActionRotateStrategy}
		}
		return RecoveryAction{Kind: ActionReassessComplexity}

	case StagnationFailure:
		if pattern.Symptom.IterationsStagnant >= 5 {
			if attempts < r.config.MaxStrategyAttempts {
				return RecoveryAction{Kind: ActionRotateStrategy}
			}
			return RecoveryAction{Kind: ActionSimplifyApproach}
		}
		return RecoveryAction{Kind: ActionReassessComplexity}

	case BudgetExhaustion:
		return RecoveryAction{Kind: ActionAbort, Reason: "iteration budget exhausted"}

	case Timeout:
		if r.parallelismIdx < len(r.config.ParallelismLevels)-1 {
			from := r.config.ParallelismLevels[r.parallelismIdx]
			r.parallelismIdx++
			to := r.config.ParallelismLevels[r.parallelismIdx]
			return RecoveryAction{Kind: ActionReduceParallelism, From: from, To: to}
		}
		return RecoveryAction{Kind: ActionSimplifyApproach}

	default:
		if attempts < r.config.MaxStrategyAttempts {
			return RecoveryAction{Kind: ActionRotateStrategy}
		}
		return RecoveryAction{Kind: ActionAbort, Reason: "unknown failure persisting"}
	}
}

// RotateStrategy advances to the next strategy in rotation order, crediting
// an attempt to the strategy being left, and returns the new current
// strategy.
func (r *AdaptiveRecovery) RotateStrategy() Strategy {
	current := r.CurrentStrategy()
	r.strategyAttempts[current]++
	r.currentStrategyIdx = (r.currentStrategyIdx + 1) % len(r.strategyRotation)
	return r.CurrentStrategy()
}

// CurrentStrategy returns the strategy currently selected in rotation.
func (r *AdaptiveRecovery) CurrentStrategy() Strategy {
	return r.strategyRotation[r.currentStrategyIdx]
}

// StrategyAttempts returns how many times s has been rotated away from.
func (r *AdaptiveRecovery) StrategyAttempts(s Strategy) int {
	return r.strategyAttempts[s]
}

// ShouldAbort reports whether every strategy in rotation has exhausted its
// attempt budget, meaning recovery has nothing left to try.
func (r *AdaptiveRecovery) ShouldAbort() bool {
	for _, attempts := range r.strategyAttempts {
		if attempts < r.config.MaxStrategyAttempts {
			return false
		}
	}
	return true
}

// RecentFailureCount returns the number of patterns still within the
// recency window.
func (r *AdaptiveRecovery) RecentFailureCount() int {
	now := r.now()
	count := 0
	for _, p := range r.failureHistory {
		if p.IsRecent(now) {
			count++
		}
	}
	return count
}

func (r *AdaptiveRecovery) pruneOldPatterns() {
	now := r.now()
	for key, p := range r.failureHistory {
		if !p.IsRecent(now) {
			delete(r.failureHistory, key)
		}
	}

	if len(r.failureHistory) <= r.config.MaxHistorySize {
		return
	}

	type entry struct {
		key  string
		freq int
	}
	entries := make([]entry, 0, len(r.failureHistory))
	for key, p := range r.failureHistory {
		entries = append(entries, entry{key, p.Frequency})
	}
	// Remove the least-frequent patterns first, same tie-break as a stable
	// sort by frequency ascending.
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].freq < entries[i].freq {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	toRemove := len(entries) - r.config.MaxHistorySize
	for i := 0; i < toRemove; i++ {
		delete(r.failureHistory, entries[i].key)
	}
}

// Reset clears all recorded history and rotation state.
func (r *AdaptiveRecovery) Reset() {
	r.failureHistory = map[string]*FailurePattern{}
	r.currentStrategyIdx = 0
	r.parallelismIdx = 0
	for s := range r.strategyAttempts {
		r.strategyAttempts[s] = 0
	}
}

// Config returns the recovery system's configuration.
func (r *AdaptiveRecovery) Config() Config {
	return r.config
}
