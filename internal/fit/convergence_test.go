package fit

import "testing"

func TestConvergenceTrackerStopsAfterPatience(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0.1})

	if tracker.Update(50, 100) {
		t.Error("Should not converge on a productive epoch")
	}
	if tracker.Update(5, 100) {
		t.Error("Should not converge yet (1/3)")
	}
	if tracker.Update(1, 100) {
		t.Error("Should not converge yet (2/3)")
	}
	if !tracker.Update(0, 100) {
		t.Error("Should converge after patience exceeded (3/3)")
	}
	if tracker.StaleCount() != 3 {
		t.Errorf("Expected stale count 3, got %d", tracker.StaleCount())
	}
	if tracker.BestRatio() != 0.5 {
		t.Errorf("Expected best ratio 0.5, got %f", tracker.BestRatio())
	}
}

func TestConvergenceTrackerProgressResets(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.1})

	tracker.Update(0, 10)
	if tracker.StaleCount() != 1 {
		t.Errorf("Expected stale count 1, got %d", tracker.StaleCount())
	}
	tracker.Update(5, 10)
	if tracker.StaleCount() != 0 {
		t.Errorf("Expected stale count reset to 0, got %d", tracker.StaleCount())
	}
	if got := tracker.History(); len(got) != 2 || got[1] != 0.5 {
		t.Errorf("Unexpected history %v", got)
	}

	tracker.Reset()
	if len(tracker.History()) != 0 || tracker.StaleCount() != 0 {
		t.Error("Reset should clear state")
	}
}

func TestConvergenceTrackerDisabled(t *testing.T) {
	tracker := NewConvergenceTracker(DisabledConvergenceConfig())

	for i := 0; i < 10; i++ {
		if tracker.Update(0, 100) {
			t.Fatal("Disabled tracker must never converge")
		}
	}
}

func TestConvergenceTrackerNoSearches(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.1})

	if !tracker.Update(0, 0) {
		t.Error("An epoch without searches is stale")
	}
}
