package planning

import "time"

// ConvergenceConfig tunes the Convergence Detector (C12). Defaults mirror
// original_source's analysis/convergence.rs — δ already fixed at the
// resolved project-wide 0.05 margin is unrelated to velocityThreshold here,
// the two are independently-sourced constants that happen to share a value.
type ConvergenceConfig struct {
	VelocityThreshold   float64
	MinIterations       int
	SuccessThreshold    float64
	ValidationThreshold float64
	VelocityWindow      int
	MaxHistory          int
}

// DefaultConvergenceConfig returns original_source's tuned defaults.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		VelocityThreshold:   0.05,
		MinIterations:       3,
		SuccessThreshold:    0.95,
		ValidationThreshold: 0.85,
		VelocityWindow:      3,
		MaxHistory:          50,
	}
}

// ProgressSample is one recorded (progress, iteration) observation.
type ProgressSample struct {
	Progress  float64
	Iteration int
	Recorded  time.Time
}

// VelocityMetric is the rate of progress change over a window of samples.
type VelocityMetric struct {
	DeltaProgress   float64
	DeltaIterations int
	Velocity        float64
	WindowStart     int
	WindowEnd       int
}

// IsStagnant reports whether the velocity's magnitude is below threshold.
func (v VelocityMetric) IsStagnant(threshold float64) bool {
	return absf(v.Velocity) < threshold
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func calculateVelocity(progressStart, progressEnd float64, iterStart, iterEnd int) VelocityMetric {
	deltaProgress := progressEnd - progressStart
	deltaIterations := iterEnd - iterStart
	if deltaIterations < 0 {
		deltaIterations = 0
	}

	velocity := 0.0
	if deltaIterations > 0 {
		velocity = deltaProgress / float64(deltaIterations)
	}

	return VelocityMetric{
		DeltaProgress:   deltaProgress,
		DeltaIterations: deltaIterations,
		Velocity:        velocity,
		WindowStart:     iterStart,
		WindowEnd:       iterEnd,
	}
}

// StagnationStatus classifies the outcome of DetectStagnation.
type StagnationStatus int

const (
	StagnationInsufficientData StagnationStatus = iota
	StagnationActive
	StagnationStagnant
)

// StagnationResult is the outcome of one DetectStagnation call.
type StagnationResult struct {
	Status              StagnationStatus
	Velocity            float64
	IterationsStagnant  int
	IterationsObserved  int
	IterationsNeeded    int
	Threshold           float64
}

// IsStagnant reports whether the result indicates stagnation.
func (r StagnationResult) IsStagnant() bool { return r.Status == StagnationStagnant }

// IsActive reports whether the result indicates active progress.
func (r StagnationResult) IsActive() bool { return r.Status == StagnationActive }

// TerminationCondition is the outcome of CheckTermination.
type TerminationCondition int

const (
	TerminationNone TerminationCondition = iota
	TerminationSuccess
	TerminationBudgetExhausted
	TerminationStagnation
)

// ConvergencePrediction extrapolates from the recorded average velocity.
type ConvergencePrediction struct {
	CurrentProgress    float64
	AverageVelocity    float64
	SamplesObserved    int
}

// ConvergenceDetector (C12) tracks a bounded progress history and derives
// velocity, stagnation, and termination signals from it. Grounded on
// original_source's analysis/convergence.rs ConvergenceDetector.
type ConvergenceDetector struct {
	config          ConvergenceConfig
	history         []ProgressSample
	lastVelocity    *VelocityMetric
	stagnationCount int
}

// NewConvergenceDetector returns a detector using DefaultConvergenceConfig.
func NewConvergenceDetector() *ConvergenceDetector {
	return NewConvergenceDetectorWithConfig(DefaultConvergenceConfig())
}

// NewConvergenceDetectorWithConfig returns a detector using a custom config.
func NewConvergenceDetectorWithConfig(cfg ConvergenceConfig) *ConvergenceDetector {
	return &ConvergenceDetector{config: cfg}
}

// Config returns the detector's configuration.
func (d *ConvergenceDetector) Config() ConvergenceConfig { return d.config }

// RecordProgress appends a (progress, iteration) sample, evicting the
// oldest sample once MaxHistory is exceeded, and recomputes velocity once
// at least two samples exist.
func (d *ConvergenceDetector) RecordProgress(progress float64, iteration int) {
	sample := ProgressSample{Progress: clamp01(progress), Iteration: iteration, Recorded: recordedAt()}
	d.history = append(d.history, sample)

	if len(d.history) > d.config.MaxHistory {
		d.history = d.history[1:]
	}

	if len(d.history) >= 2 {
		d.calculateVelocity()
	}
}

// recordedAt is split out so a future caller that needs deterministic
// timestamps (e.g. replaying recorded samples) can stub it; today it is
// just time.Now.
func recordedAt() time.Time { return time.Now() }

func (d *ConvergenceDetector) calculateVelocity() {
	windowSize := d.config.VelocityWindow
	if windowSize > len(d.history) {
		windowSize = len(d.history)
	}
	startIdx := len(d.history) - windowSize
	start := d.history[startIdx]
	end := d.history[len(d.history)-1]

	v := calculateVelocity(start.Progress, end.Progress, start.Iteration, end.Iteration)
	d.lastVelocity = &v
}

// Velocity returns the most recently calculated velocity, if any.
func (d *ConvergenceDetector) Velocity() (VelocityMetric, bool) {
	if d.lastVelocity == nil {
		return VelocityMetric{}, false
	}
	return *d.lastVelocity, true
}

// DetectStagnation classifies the current trend as insufficient-data,
// active, or stagnant, and updates the internal stagnation streak counter.
func (d *ConvergenceDetector) DetectStagnation() StagnationResult {
	if len(d.history) < d.config.MinIterations {
		return StagnationResult{
			Status:           StagnationInsufficientData,
			IterationsNeeded: d.config.MinIterations - len(d.history),
		}
	}

	if d.lastVelocity == nil {
		return StagnationResult{Status: StagnationInsufficientData, IterationsNeeded: 1}
	}

	if d.lastVelocity.IsStagnant(d.config.VelocityThreshold) {
		d.stagnationCount++
		return StagnationResult{
			Status:             StagnationStagnant,
			Velocity:           d.lastVelocity.Velocity,
			IterationsStagnant: d.stagnationCount,
			Threshold:          d.config.VelocityThreshold,
		}
	}

	d.stagnationCount = 0
	return StagnationResult{
		Status:             StagnationActive,
		Velocity:           d.lastVelocity.Velocity,
		IterationsObserved: len(d.history),
	}
}

// PredictConvergence extrapolates from the average step-over-step velocity
// across the whole recorded history. ok is false if no samples exist yet.
func (d *ConvergenceDetector) PredictConvergence() (ConvergencePrediction, bool) {
	if len(d.history) == 0 {
		return ConvergencePrediction{}, false
	}

	current := d.history[len(d.history)-1]

	avgVelocity := 0.0
	if len(d.history) >= 2 {
		var totalDelta float64
		for i := 1; i < len(d.history); i++ {
			totalDelta += d.history[i].Progress - d.history[i-1].Progress
		}
		avgVelocity = totalDelta / float64(len(d.history)-1)
	}

	return ConvergencePrediction{
		CurrentProgress: current.Progress,
		AverageVelocity: avgVelocity,
		SamplesObserved: len(d.history),
	}, true
}

// CheckTermination evaluates the early-termination conditions in priority
// order: success (progress and validation both clear their thresholds),
// then budget exhaustion, then sustained near-zero velocity past iteration
// 8 — the same ordering and constants as original_source's check_termination.
func (d *ConvergenceDetector) CheckTermination(progress, validationScore float64, iterationsUsed, budget int) TerminationCondition {
	if progress >= d.config.SuccessThreshold && validationScore >= d.config.ValidationThreshold {
		return TerminationSuccess
	}
	if iterationsUsed >= budget {
		return TerminationBudgetExhausted
	}
	if d.lastVelocity != nil && d.lastVelocity.Velocity < 0.01 && iterationsUsed > 8 {
		return TerminationStagnation
	}
	return TerminationNone
}

// CurrentProgress returns the most recently recorded progress sample.
func (d *ConvergenceDetector) CurrentProgress() (float64, bool) {
	if len(d.history) == 0 {
		return 0, false
	}
	return d.history[len(d.history)-1].Progress, true
}

// History returns the recorded sample history, oldest first.
func (d *ConvergenceDetector) History() []ProgressSample {
	return d.history
}

// StagnationCount returns the current consecutive-stagnant-check streak.
func (d *ConvergenceDetector) StagnationCount() int {
	return d.stagnationCount
}

// Reset clears all recorded history and counters.
func (d *ConvergenceDetector) Reset() {
	d.history = nil
	d.lastVelocity = nil
	d.stagnationCount = 0
}
