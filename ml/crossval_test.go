package ml_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"strokerisk/ml"
	"strokerisk/ml/mltest"
)

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		labels []int
		want   float64
	}{
		{name: "textbook", scores: []float64{0.1, 0.4, 0.35, 0.8}, labels: []int{0, 0, 1, 1}, want: 0.75},
		{name: "perfect", scores: []float64{0.1, 0.2, 0.8, 0.9}, labels: []int{0, 0, 1, 1}, want: 1},
		{name: "inverted", scores: []float64{0.9, 0.8, 0.2, 0.1}, labels: []int{0, 0, 1, 1}, want: 0},
		{name: "all tied", scores: []float64{0.5, 0.5, 0.5, 0.5}, labels: []int{0, 1, 0, 1}, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ml.ROCAUC(tt.scores, tt.labels)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("ROCAUC = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestROCAUCSingleClass(t *testing.T) {
	if _, err := ml.ROCAUC([]float64{0.1, 0.2}, []int{1, 1}); !errors.Is(err, ml.ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
}

func TestStratifiedSplits(t *testing.T) {
	_, labels := mltest.Dataset(100, 10, 1)
	cv := ml.RepeatedStratifiedKFold{Folds: 5, Repeats: 2, Seed: 42}
	splits, err := cv.Splits(labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(splits) != 10 {
		t.Fatalf("expected 10 splits, got %d", len(splits))
	}
	for _, split := range splits {
		if len(split.Train)+len(split.Test) != 100 {
			t.Fatalf("split does not cover the dataset: %d+%d", len(split.Train), len(split.Test))
		}
		positives := 0
		for _, idx := range split.Test {
			positives += labels[idx]
		}
		if positives != 2 {
			t.Fatalf("repeat %d fold %d holds %d positives, want 2", split.Repeat, split.Fold, positives)
		}
	}

	seen := make(map[int]int)
	for _, split := range splits[:5] {
		for _, idx := range split.Test {
			seen[idx]++
		}
	}
	if len(seen) != 100 {
		t.Fatalf("first repeat should test every row once, saw %d rows", len(seen))
	}
}

func TestStratifiedSplitsTooFewMinority(t *testing.T) {
	_, labels := mltest.Dataset(100, 5, 1)
	cv := ml.RepeatedStratifiedKFold{Folds: 10, Repeats: 3, Seed: 42}
	if _, err := cv.Splits(labels); !errors.Is(err, ml.ErrInsufficientClassMembers) {
		t.Fatalf("expected ErrInsufficientClassMembers, got %v", err)
	}
}

func TestCrossValidateImbalanced(t *testing.T) {
	rows, labels := mltest.Dataset(100, 5, 3)
	cv := ml.RepeatedStratifiedKFold{Folds: 5, Repeats: 3, Seed: 42}

	result, err := ml.CrossValidate(context.Background(), rows, labels, cv, ml.DefaultPipelineConfig(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Scores) != 15 {
		t.Fatalf("expected 15 scores, got %d", len(result.Scores))
	}
	if result.Mean < 0.5 || result.Mean > 1 {
		t.Fatalf("mean AUC %v outside [0.5, 1]", result.Mean)
	}
	if result.Std < 0 {
		t.Fatalf("negative std %v", result.Std)
	}
	if len(result.OutOfFold) != len(rows) {
		t.Fatalf("expected %d out-of-fold scores, got %d", len(rows), len(result.OutOfFold))
	}

	again, err := ml.CrossValidate(context.Background(), rows, labels, cv, ml.DefaultPipelineConfig(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range result.Scores {
		if result.Scores[i] != again.Scores[i] {
			t.Fatalf("scores depend on scheduling: %v vs %v", result.Scores, again.Scores)
		}
	}
}

func TestCrossValidateCancelled(t *testing.T) {
	rows, labels := mltest.Dataset(100, 10, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cv := ml.RepeatedStratifiedKFold{Folds: 5, Repeats: 1, Seed: 42}
	if _, err := ml.CrossValidate(ctx, rows, labels, cv, ml.DefaultPipelineConfig(), 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
