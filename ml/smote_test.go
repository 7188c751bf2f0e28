package ml

import (
	"errors"
	"testing"
)

func TestSMOTEBalancesClasses(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0, 1}, {1, 0}, {1, 1}, {0.5, 0.5}, {0.2, 0.8},
		{10, 10}, {11, 10}, {10, 11},
	}
	y := []int{0, 0, 0, 0, 0, 0, 1, 1, 1}

	Xr, yr, err := SMOTE{Neighbors: 5, Seed: 42}.Resample(X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(Xr) != 12 || len(yr) != 12 {
		t.Fatalf("expected 12 rows after resampling, got %d", len(Xr))
	}
	positives := 0
	for _, label := range yr {
		positives += label
	}
	if positives != 6 {
		t.Fatalf("expected 6 positives, got %d", positives)
	}
	for _, sample := range Xr[len(X):] {
		for _, v := range sample {
			if v < 10 || v > 11 {
				t.Fatalf("synthetic sample %v outside the minority hull", sample)
			}
		}
	}
	if len(X) != 9 {
		t.Fatal("input must not be modified")
	}
}

func TestSMOTEDeterministic(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {10}, {12}}
	y := []int{0, 0, 0, 0, 1, 1}
	a, _, err := SMOTE{Seed: 1}.Resample(X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _, _ := SMOTE{Seed: 1}.Resample(X, y)
	for i := range a {
		if a[i][0] != b[i][0] {
			t.Fatalf("resampling is not deterministic: %v vs %v", a, b)
		}
	}
}

func TestSMOTEBalancedInput(t *testing.T) {
	X := [][]float64{{0}, {1}}
	y := []int{0, 1}
	Xr, _, err := SMOTE{}.Resample(X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(Xr) != 2 {
		t.Fatalf("balanced input should be unchanged, got %d rows", len(Xr))
	}
}

func TestSMOTETooFewMinority(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}}
	y := []int{0, 0, 1}
	if _, _, err := (SMOTE{}).Resample(X, y); !errors.Is(err, ErrTooFewMinority) {
		t.Fatalf("expected ErrTooFewMinority, got %v", err)
	}
}
