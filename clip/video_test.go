package clip_test

import (
	"testing"

	"github.com/cladams7905/zencourt-sub006/clip"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		statuses []clip.Status
		want     clip.CompletionStatus
	}{
		{
			name:     "empty",
			statuses: nil,
			want:     clip.CompletionStatus{},
		},
		{
			name:     "all completed",
			statuses: []clip.Status{clip.StatusCompleted, clip.StatusCompleted},
			want:     clip.CompletionStatus{AllCompleted: true, Total: 2, Completed: 2},
		},
		{
			name:     "partial failure",
			statuses: []clip.Status{clip.StatusFailed, clip.StatusCompleted},
			want:     clip.CompletionStatus{AllCompleted: true, Total: 2, Completed: 1, FailedJobs: 1},
		},
		{
			name:     "still processing",
			statuses: []clip.Status{clip.StatusProcessing, clip.StatusCompleted, clip.StatusCanceled},
			want:     clip.CompletionStatus{Total: 3, Completed: 1, FailedJobs: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clip.Summarize(tt.statuses); got != tt.want {
				t.Errorf("Summarize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFailureSummary(t *testing.T) {
	if got := clip.FailureSummary(0); got != nil {
		t.Errorf("FailureSummary(0) = %q, want nil", *got)
	}
	if got := clip.FailureSummary(1); got == nil || *got != "1 clip failed" {
		t.Errorf("FailureSummary(1) = %v, want %q", got, "1 clip failed")
	}
	if got := clip.FailureSummary(2); got == nil || *got != "2 clips failed" {
		t.Errorf("FailureSummary(2) = %v, want %q", got, "2 clips failed")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !clip.StatusCompleted.IgnoresCallbacks() || !clip.StatusCanceled.IgnoresCallbacks() {
		t.Error("completed and canceled jobs must ignore callbacks")
	}
	if clip.StatusFailed.IgnoresCallbacks() {
		t.Error("failed jobs should not ignore callbacks")
	}
	if !clip.StatusFailed.IsTerminal() || clip.StatusDispatched.IsTerminal() {
		t.Error("unexpected IsTerminal result")
	}
}
