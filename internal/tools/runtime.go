package tools

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentcore/agentcore/internal/sandbox"
)

// defaultCallTimeout and maxCallTimeout bound the per-call context every
// tool invocation runs under (spec §4.7): 60s by default, never more than
// 300s even if a caller sets Runtime.CallTimeout higher.
const (
	defaultCallTimeout = 60 * time.Second
	maxCallTimeout     = 300 * time.Second
)

// RetryPolicy governs the backoff Execute applies to a Retryable tool's
// failed call. Declared here rather than reusing engine.RetryPolicy because
// internal/tools cannot import internal/engine (the dependency runs the
// other way); NewOrchestrator copies engine.DefaultToolRetryPolicy's fields
// onto a Runtime's Retry field at wiring time instead.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	WallClockCap time.Duration
}

// DefaultRetryPolicy implements spec's backoff schedule for retryable tool
// failures: 500ms * 2^k, doubling each attempt, bounded by a 31s total
// wall-clock cap.
var DefaultRetryPolicy = RetryPolicy{
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     16 * time.Second,
	Multiplier:   2.0,
	WallClockCap: 31 * time.Second,
}

// Invocation is one request to run a tool, as decoded from an AgentMessage.
type Invocation struct {
	ToolName string
	Args     map[string]any
	// PathArg, when non-empty, is the resolved path a write-effect tool
	// targets; invocations sharing a PathArg are serialized against one
	// another regardless of which parallel batch they arrive in.
	PathArg string
}

// Observation is the result of running one Invocation.
type Observation struct {
	Invocation Invocation
	Output     string
	Err        error
	Duration   time.Duration
}

// Runtime composes the Path-Jail, the tool Registry, and a bounded
// parallel executor, mirroring original_source/src/tools/runtime.rs's
// ToolRuntime. Per spec §5: write-effect invocations targeting the same
// resolved path are serialized via a per-path mutex registry; read-effect
// and network-effect invocations proceed in parallel up to MaxParallel.
type Runtime struct {
	Jail        *sandbox.PathJail
	Registry    Registry
	MaxParallel int

	// CallTimeout bounds a single tool.Fn invocation. Zero uses
	// defaultCallTimeout; values above maxCallTimeout are clamped.
	CallTimeout time.Duration

	// Retry governs the backoff Execute applies to Retryable tools. Zero
	// value (InitialDelay == 0) falls back to DefaultRetryPolicy.
	Retry RetryPolicy

	networkLimiter *rate.Limiter

	pathLocksMu sync.Mutex
	pathLocks   map[string]*sync.Mutex
}

// NewRuntime returns a Runtime bounding concurrent tool tasks to
// maxParallel and outbound network tool calls to one per 200ms (a
// conservative default; config.View.MaxParallelTools governs the bound
// used in practice).
func NewRuntime(jail *sandbox.PathJail, reg Registry, maxParallel int) *Runtime {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &Runtime{
		Jail:           jail,
		Registry:       reg,
		MaxParallel:    maxParallel,
		Retry:          DefaultRetryPolicy,
		networkLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		pathLocks:      make(map[string]*sync.Mutex),
	}
}

// Timeout returns the effective per-call timeout Execute applies: zero
// CallTimeout falls back to defaultCallTimeout, clamped at maxCallTimeout.
func (r *Runtime) Timeout() time.Duration {
	t := r.CallTimeout
	if t <= 0 {
		t = defaultCallTimeout
	}
	if t > maxCallTimeout {
		t = maxCallTimeout
	}
	return t
}

func (r *Runtime) retryPolicy() RetryPolicy {
	if r.Retry.InitialDelay <= 0 {
		return DefaultRetryPolicy
	}
	return r.Retry
}

// Execute runs one invocation, validating its arguments against the tool's
// schema first, then dispatching tool.Fn under a per-call timeout with
// exponential-backoff retry for Retryable tools (spec §4.7).
func (r *Runtime) Execute(ctx context.Context, inv Invocation) Observation {
	start := time.Now()

	tool, err := r.Registry.Lookup(inv.ToolName)
	if err != nil {
		return Observation{Invocation: inv, Err: err, Duration: time.Since(start)}
	}
	if err := tool.ValidateArgs(inv.Args); err != nil {
		return Observation{Invocation: inv, Err: err, Duration: time.Since(start)}
	}

	if tool.NetworkEffect {
		if err := r.networkLimiter.Wait(ctx); err != nil {
			return Observation{Invocation: inv, Err: err, Duration: time.Since(start)}
		}
	}

	var unlock func()
	if !tool.ReadOnly && inv.PathArg != "" {
		unlock = r.lockPath(inv.PathArg)
	}

	out, err := r.invokeWithRetry(ctx, tool, inv.Args)
	if unlock != nil {
		unlock()
	}

	return Observation{Invocation: inv, Output: out, Err: err, Duration: time.Since(start)}
}

// invokeWithRetry calls tool.Fn once under a timeout; if it fails and
// tool.Retryable, it retries with doubling backoff until either a call
// succeeds or the policy's wall-clock cap would be exceeded by the next
// delay.
func (r *Runtime) invokeWithRetry(ctx context.Context, tool Tool, args map[string]any) (string, error) {
	policy := r.retryPolicy()
	deadline := time.Now().Add(policy.WallClockCap)
	delay := policy.InitialDelay

	for {
		out, err := r.invokeOnce(ctx, tool, args)
		if err == nil || !tool.Retryable {
			return out, err
		}
		if time.Now().Add(delay).After(deadline) {
			return out, err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

func (r *Runtime) invokeOnce(ctx context.Context, tool Tool, args map[string]any) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.Timeout())
	defer cancel()
	return tool.Fn(callCtx, args)
}

// ExecuteParallel fans invocations out across up to MaxParallel concurrent
// goroutines and returns Observations in the same order as invocations was
// given, regardless of completion order — the orchestrator's merge point
// relies on this for deterministic observation ordering per iteration.
func (r *Runtime) ExecuteParallel(ctx context.Context, invocations []Invocation) []Observation {
	results := make([]Observation, len(invocations))
	sem := make(chan struct{}, r.MaxParallel)
	var wg sync.WaitGroup

	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv Invocation) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.Execute(ctx, inv)
		}(i, inv)
	}

	wg.Wait()
	return results
}

func (r *Runtime) lockPath(path string) func() {
	r.pathLocksMu.Lock()
	lock, ok := r.pathLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		r.pathLocks[path] = lock
	}
	r.pathLocksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}
