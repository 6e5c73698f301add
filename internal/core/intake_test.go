package core

import "testing"

func TestIntakeStatus_CanTransitionTo_Monotone(t *testing.T) {
	if !StatusPending.CanTransitionTo(StatusExtracting) {
		t.Fatal("expected forward transition to be allowed")
	}
	if StatusExtracting.CanTransitionTo(StatusPending) {
		t.Fatal("expected backward transition to be rejected")
	}
	if !StatusExtracting.CanTransitionTo(StatusExtracting) {
		t.Fatal("expected replaying the same status to be a no-op, not an error")
	}
	if !StatusMapping.CanTransitionTo(StatusFailed) {
		t.Fatal("expected any non-terminal status to be able to transition to failed")
	}
	if StatusCompleted.CanTransitionTo(StatusIndexing) {
		t.Fatal("expected terminal status to reject any further transition")
	}
	if StatusFailed.CanTransitionTo(StatusPending) {
		t.Fatal("expected failed to be terminal")
	}
}

func TestIntakeStatus_Progress_BoundaryValues(t *testing.T) {
	if StatusCompleted.Progress() != 1.0 {
		t.Fatalf("expected completed progress 1.0, got %f", StatusCompleted.Progress())
	}
	if StatusFailed.Progress() != 0.0 {
		t.Fatalf("expected failed progress 0.0, got %f", StatusFailed.Progress())
	}
	if StatusUploading.Progress() != 0.0 {
		t.Fatalf("expected uploading progress 0.0, got %f", StatusUploading.Progress())
	}
}

func TestMatchMethod_Confident(t *testing.T) {
	if !MatchExact.Confident(1.0) {
		t.Fatal("exact at 1.0 should be confident")
	}
	if !MatchFuzzy.Confident(0.75) {
		t.Fatal("fuzzy at the 0.75 threshold should be confident (inclusive)")
	}
	if MatchFuzzy.Confident(0.74) {
		t.Fatal("fuzzy below 0.75 should not be confident")
	}
	if MatchSuggested.Confident(0.99) {
		t.Fatal("suggested should never be confident")
	}
}
