package ml_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strokerisk/ml"
	"strokerisk/ml/mltest"
)

func TestFitPipelinePredicts(t *testing.T) {
	rows, labels := mltest.Dataset(200, 20, 11)
	p, report, err := ml.FitPipeline(rows, labels, ml.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Rows != 200 || report.Resampled != 360 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Features != len(p.Contract().FeatureNames()) {
		t.Fatalf("report features %d do not match contract", report.Features)
	}

	lowRisk := mltest.Record()
	label, proba, err := p.Predict(lowRisk.Row())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 || proba >= 0.5 {
		t.Fatalf("expected low risk, got label=%d proba=%v", label, proba)
	}

	highRisk := lowRisk
	highRisk.Age = 80
	highRisk.AvgGlucoseLevel = 240
	highRisk.BMI = 35
	highRisk.Hypertension = 1
	highRisk.SmokingStatus = "smokes"
	label, proba, err = p.Predict(highRisk.Row())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 || proba <= 0.5 {
		t.Fatalf("expected high risk, got label=%d proba=%v", label, proba)
	}
}

func TestFitPipelineUnseenCategory(t *testing.T) {
	p := mltest.Pipeline(t)
	record := mltest.Record()
	record.WorkType = "Astronaut"
	record.SmokingStatus = "vapes"
	label, proba, err := p.Predict(record.Row())
	if err != nil {
		t.Fatalf("unseen categories must not fail: %v", err)
	}
	if label != 0 && label != 1 {
		t.Fatalf("unexpected label %d", label)
	}
	if proba < 0 || proba > 1 {
		t.Fatalf("probability %v outside [0, 1]", proba)
	}
}

func TestPipelinePredictProbaMatchesPredict(t *testing.T) {
	p := mltest.Pipeline(t)
	rows, _ := mltest.Dataset(30, 5, 3)

	probas, err := p.PredictProba(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(probas) != len(rows) {
		t.Fatalf("expected %d probabilities, got %d", len(rows), len(probas))
	}
	for i, row := range rows {
		_, proba, err := p.Predict(row)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if probas[i] != proba {
			t.Fatalf("row %d: batch %v, single %v", i, probas[i], proba)
		}
	}

	empty, err := p.PredictProba(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v, %v", empty, err)
	}
}

func TestFitPipelineRejectsBadLabels(t *testing.T) {
	rows, labels := mltest.Dataset(20, 5, 1)
	labels[3] = 2
	if _, _, err := ml.FitPipeline(rows, labels, ml.DefaultPipelineConfig()); !errors.Is(err, ml.ErrNonBinaryLabel) {
		t.Fatalf("expected ErrNonBinaryLabel, got %v", err)
	}
	if _, _, err := ml.FitPipeline(nil, nil, ml.DefaultPipelineConfig()); !errors.Is(err, ml.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	rows, labels = mltest.Dataset(20, 0, 1)
	if _, _, err := ml.FitPipeline(rows, labels, ml.DefaultPipelineConfig()); !errors.Is(err, ml.ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	p := mltest.Pipeline(t)
	p = p.WithMetadata(ml.Metadata{Rows: 200, Positives: 20, CVMean: 0.9, CVStd: 0.01, Folds: 10, Repeats: 3})
	path := filepath.Join(t.TempDir(), "models", "stroke.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := ml.LoadPipeline(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rows, _ := mltest.Dataset(50, 5, 99)
	record := mltest.Record()
	record.WorkType = "Astronaut"
	rows = append(rows, record.Row())
	for i, row := range rows {
		wantLabel, wantProba, err := p.Predict(row)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		gotLabel, gotProba, err := loaded.Predict(row)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if gotLabel != wantLabel || gotProba != wantProba {
			t.Fatalf("row %d: loaded pipeline predicts (%d, %v), want (%d, %v)", i, gotLabel, gotProba, wantLabel, wantProba)
		}
	}
	if loaded.Metadata().CVMean != 0.9 || loaded.Metadata().Folds != 10 {
		t.Fatalf("metadata not preserved: %+v", loaded.Metadata())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the artifact in the directory, found %d entries", len(entries))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Fatalf("expected artifact mode 0644, got %o", perm)
	}
}

func TestArtifactSaveFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stroke.json")
	p := mltest.Pipeline(t)
	if err := p.Save(path); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A regular file where the artifact's parent directory should be makes the save fail.
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Save(filepath.Join(blocked, "stroke.json")); err == nil {
		t.Fatal("expected save under a regular file to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("existing artifact changed by a failed save")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected no pending files left behind, found %d entries", len(entries))
	}
}

func TestArtifactReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stroke.json")
	first := mltest.Pipeline(t)
	if err := first.Save(path); err != nil {
		t.Fatal(err)
	}
	rows, labels := mltest.Dataset(120, 30, 5)
	second, _, err := ml.FitPipeline(rows, labels, ml.DefaultPipelineConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := ml.LoadPipeline(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Metadata().Rows != 120 {
		t.Fatalf("expected the replacing artifact, got rows=%d", loaded.Metadata().Rows)
	}
}

func TestDecodeInvalidArtifact(t *testing.T) {
	tests := map[string]string{
		"not json":      "{",
		"empty":         "{}",
		"missing model": `{"preprocessor": {"contract": {"numerical": ["age"], "categorical": ["x"]}}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ml.DecodePipeline(strings.NewReader(body)); !errors.Is(err, ml.ErrInvalidArtifact) {
				t.Fatalf("expected ErrInvalidArtifact, got %v", err)
			}
		})
	}

	var buf bytes.Buffer
	if err := mltest.Pipeline(t).Encode(&buf); err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(buf.String(), `"weights": [`, `"weights": [1,`, 1)
	if _, err := ml.DecodePipeline(strings.NewReader(tampered)); !errors.Is(err, ml.ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact for mismatched weights, got %v", err)
	}
}

func TestSaveROCPlot(t *testing.T) {
	tpr := []float64{0, 0.5, 1, 1}
	fpr := []float64{0, 0, 0.5, 1}
	path := filepath.Join(t.TempDir(), "roc.png")
	if err := ml.SaveROCPlot(path, tpr, fpr, 0.875); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("expected a PNG image, got %d bytes", len(data))
	}

	svgPath := filepath.Join(t.TempDir(), "roc.svg")
	if err := ml.SaveROCPlot(svgPath, tpr, fpr, 0.875); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data, err := os.ReadFile(svgPath); err != nil || !bytes.Contains(data, []byte("<svg")) {
		t.Fatalf("expected an SVG image, err=%v", err)
	}

	if err := ml.SaveROCPlot(path, nil, nil, math.NaN()); err == nil {
		t.Fatal("expected error for empty curve")
	}
}
