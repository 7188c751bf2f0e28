package ml

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "odd", values: []float64{3, 1, 2}, want: 2},
		{name: "even", values: []float64{4, 1, 3, 2}, want: 2.5},
		{name: "single", values: []float64{7}, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); got != tt.want {
				t.Fatalf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestNumericImputerUsesFrozenMedian(t *testing.T) {
	rows := []Row{
		{Num: []float64{10, 1}},
		{Num: []float64{20, math.NaN()}},
		{Num: []float64{math.NaN(), 3}},
	}
	var imp NumericImputer
	if err := imp.Fit(rows, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imp.Medians[0] != 15 || imp.Medians[1] != 2 {
		t.Fatalf("unexpected medians: %v", imp.Medians)
	}

	row := Row{Num: []float64{math.NaN(), 1000}}
	imp.Transform(row)
	if row.Num[0] != 15 || row.Num[1] != 1000 {
		t.Fatalf("unexpected imputed row: %v", row.Num)
	}
	if imp.Medians[0] != 15 {
		t.Fatalf("transform changed statistics: %v", imp.Medians)
	}
}

func TestNumericImputerAllMissing(t *testing.T) {
	rows := []Row{{Num: []float64{math.NaN()}}, {Num: []float64{math.NaN()}}}
	var imp NumericImputer
	if err := imp.Fit(rows, []string{"bmi"}); err == nil {
		t.Fatal("expected error for a column without observed values")
	}
}

func TestCategoricalImputerMode(t *testing.T) {
	rows := []Row{
		{Cat: []string{"b", "x"}},
		{Cat: []string{"a", ""}},
		{Cat: []string{"b", "y"}},
		{Cat: []string{"", "x"}},
		{Cat: []string{"a", "y"}},
	}
	var imp CategoricalImputer
	if err := imp.Fit(rows, []string{"first", "second"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both columns are ties; the smallest value wins.
	if imp.Modes[0] != "a" || imp.Modes[1] != "x" {
		t.Fatalf("unexpected modes: %v", imp.Modes)
	}

	row := Row{Cat: []string{"", "z"}}
	imp.Transform(row)
	if row.Cat[0] != "a" || row.Cat[1] != "z" {
		t.Fatalf("unexpected imputed row: %v", row.Cat)
	}
}
