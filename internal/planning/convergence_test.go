package planning

import "testing"

func TestRecordAndRetrieveProgress(t *testing.T) {
	d := NewConvergenceDetector()
	d.RecordProgress(0.0, 1)
	if p, ok := d.CurrentProgress(); !ok || p != 0.0 {
		t.Fatalf("expected 0.0, got %f ok=%v", p, ok)
	}
	d.RecordProgress(0.2, 2)
	if p, ok := d.CurrentProgress(); !ok || p != 0.2 {
		t.Fatalf("expected 0.2, got %f ok=%v", p, ok)
	}
}

func TestVelocityPositiveOnIncrease(t *testing.T) {
	d := NewConvergenceDetector()
	d.RecordProgress(0.0, 1)
	d.RecordProgress(0.3, 2)
	d.RecordProgress(0.6, 3)

	v, ok := d.Velocity()
	if !ok {
		t.Fatal("expected velocity to be calculated")
	}
	if v.Velocity <= 0 {
		t.Fatalf("expected positive velocity, got %f", v.Velocity)
	}
}

func TestStagnationInsufficientData(t *testing.T) {
	d := NewConvergenceDetector()
	d.RecordProgress(0.0, 1)
	result := d.DetectStagnation()
	if result.Status != StagnationInsufficientData {
		t.Fatalf("expected insufficient data, got %v", result.Status)
	}
}

func TestStagnationDetectedWhenFlat(t *testing.T) {
	d := NewConvergenceDetector()
	d.RecordProgress(0.5, 1)
	d.RecordProgress(0.5, 2)
	d.RecordProgress(0.5, 3)
	d.RecordProgress(0.5, 4)

	result := d.DetectStagnation()
	if !result.IsStagnant() {
		t.Fatal("expected stagnation on flat progress")
	}
}

func TestTerminationConditionsInPriorityOrder(t *testing.T) {
	d := NewConvergenceDetector()

	if got := d.CheckTermination(0.96, 0.90, 5, 20); got != TerminationSuccess {
		t.Fatalf("expected success, got %v", got)
	}
	if got := d.CheckTermination(0.5, 0.7, 20, 20); got != TerminationBudgetExhausted {
		t.Fatalf("expected budget exhausted, got %v", got)
	}
	if got := d.CheckTermination(0.5, 0.7, 5, 20); got != TerminationNone {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestBoundedHistory(t *testing.T) {
	cfg := DefaultConvergenceConfig()
	cfg.MaxHistory = 5
	d := NewConvergenceDetectorWithConfig(cfg)

	for i := 1; i <= 10; i++ {
		d.RecordProgress(float64(i)/10.0, i)
	}
	if len(d.History()) != 5 {
		t.Fatalf("expected history bounded to 5, got %d", len(d.History()))
	}
}

func TestResetClearsState(t *testing.T) {
	d := NewConvergenceDetector()
	d.RecordProgress(0.3, 1)
	d.RecordProgress(0.6, 2)
	d.Reset()
	if len(d.History()) != 0 {
		t.Fatal("expected empty history after reset")
	}
	if d.StagnationCount() != 0 {
		t.Fatal("expected zero stagnation count after reset")
	}
}
