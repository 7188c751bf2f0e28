package ml

import (
	"math"
	"testing"
)

func TestStandardScaler(t *testing.T) {
	rows := []Row{
		{Num: []float64{1, 5}},
		{Num: []float64{3, 5}},
	}
	var s StandardScaler
	s.Fit(rows)
	if s.Mean[0] != 2 || s.Scale[0] != 1 {
		t.Fatalf("unexpected first column stats: mean=%v scale=%v", s.Mean[0], s.Scale[0])
	}
	if s.Scale[1] != 1 {
		t.Fatalf("constant column should have scale 1, got %v", s.Scale[1])
	}
	got := s.Transform(nil, Row{Num: []float64{3, 5}})
	if math.Abs(got[0]-1) > 1e-12 || got[1] != 0 {
		t.Fatalf("unexpected transform: %v", got)
	}
}

func TestOneHotEncoderUnknownCategory(t *testing.T) {
	rows := []Row{
		{Cat: []string{"Urban", "smokes"}},
		{Cat: []string{"Rural", "never smoked"}},
	}
	var e OneHotEncoder
	e.Fit(rows)
	if e.Width() != 4 {
		t.Fatalf("expected width 4, got %d", e.Width())
	}
	if e.Categories[0][0] != "Rural" || e.Categories[1][0] != "never smoked" {
		t.Fatalf("categories should be sorted: %v", e.Categories)
	}

	known := e.Transform(nil, Row{Cat: []string{"Urban", "smokes"}})
	want := []float64{0, 1, 0, 1}
	for i := range want {
		if known[i] != want[i] {
			t.Fatalf("unexpected encoding %v, want %v", known, want)
		}
	}

	unknown := e.Transform(nil, Row{Cat: []string{"Urban", "vapes"}})
	want = []float64{0, 1, 0, 0}
	for i := range want {
		if unknown[i] != want[i] {
			t.Fatalf("unexpected encoding %v, want %v", unknown, want)
		}
	}
}

func TestPreprocessorColumnOrder(t *testing.T) {
	rows := []Row{
		{Num: []float64{50, 100, 25}, Cat: []string{"0", "0", "Yes", "Private", "Urban", "smokes"}},
		{Num: []float64{60, 120, math.NaN()}, Cat: []string{"1", "0", "No", "Govt_job", "Rural", ""}},
		{Num: []float64{70, 140, 30}, Cat: []string{"0", "1", "Yes", "Private", "Urban", "smokes"}},
	}
	p := NewPreprocessor()
	if err := p.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := p.FeatureNames()
	if len(names) != p.Width() {
		t.Fatalf("feature names %d do not match width %d", len(names), p.Width())
	}
	if names[0] != FieldAge || names[1] != FieldAvgGlucoseLevel || names[2] != FieldBMI {
		t.Fatalf("numerical columns must come first: %v", names)
	}
	if names[3] != "hypertension=0" || names[4] != "hypertension=1" {
		t.Fatalf("unexpected categorical order: %v", names)
	}
	if got := p.Contract.Vocabulary[FieldSmokingStatus]; len(got) != 1 || got[0] != "smokes" {
		t.Fatalf("missing smoking status should be imputed before encoding: %v", got)
	}

	vector, err := p.TransformRow(rows[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != p.Width() {
		t.Fatalf("unexpected vector length %d", len(vector))
	}
	if !math.IsNaN(rows[1].Num[2]) {
		t.Fatal("transform must not modify its input")
	}

	if _, err := p.TransformRow(Row{Num: []float64{1}}); err == nil {
		t.Fatal("expected shape error")
	}
}
