package model

import "testing"

func TestProgressPercentage(t *testing.T) {
	cases := []struct {
		stage WorkflowStage
		want  int
	}{
		{StageInitialized, 10},
		{StageCollectingMetadata, 25},
		{StageConverting, 50},
		{StageEvaluating, 75},
		{StageCompleted, 100},
		{StageFailed, 0},
		{WorkflowStage("bogus"), 0},
	}
	for _, c := range cases {
		if got := ProgressPercentage(c.stage); got != c.want {
			t.Errorf("ProgressPercentage(%q) = %d, want %d", c.stage, got, c.want)
		}
	}
}

func TestStatusMessageNonEmpty(t *testing.T) {
	for _, stage := range []WorkflowStage{
		StageInitialized, StageCollectingMetadata, StageConverting,
		StageEvaluating, StageCompleted, StageFailed,
	} {
		if StatusMessage(stage) == "" {
			t.Errorf("StatusMessage(%q) is empty", stage)
		}
	}
}
