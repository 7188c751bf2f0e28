package ml

import (
	"fmt"
	"time"
)

// PipelineConfig holds the hyperparameters of one pipeline fit. Neighbors
// and Seed configure oversampling; MaxIter and Tol bound the classifier.
type PipelineConfig struct {
	Neighbors int
	MaxIter   int
	Tol       float64
	Seed      int64
}

// DefaultPipelineConfig mirrors the production training settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Neighbors: 5,
		MaxIter:   defaultMaxIter,
		Tol:       defaultTol,
		Seed:      42,
	}
}

// FitReport describes one pipeline fit.
type FitReport struct {
	Rows       int
	Resampled  int
	Features   int
	Iterations int
	Converged  bool
}

// Pipeline is a fitted preprocessor plus classifier. It is never mutated
// after FitPipeline or LoadPipeline returns and is safe for concurrent use.
type Pipeline struct {
	pre      *Preprocessor
	model    *LogisticRegression
	metadata Metadata
}

// FitPipeline fits imputation, encoding, oversampling and the classifier on
// rows. Oversampling only ever sees the rows passed here.
func FitPipeline(rows []Row, labels []int, cfg PipelineConfig) (*Pipeline, FitReport, error) {
	var report FitReport
	if len(rows) == 0 {
		return nil, report, ErrEmptyDataset
	}
	if len(rows) != len(labels) {
		return nil, report, ErrLabelMismatch
	}
	if err := checkBinary(labels); err != nil {
		return nil, report, err
	}

	pre := NewPreprocessor()
	if err := pre.Fit(rows); err != nil {
		return nil, report, fmt.Errorf("fit preprocessor: %w", err)
	}
	X, err := pre.Transform(rows)
	if err != nil {
		return nil, report, err
	}

	smote := SMOTE{Neighbors: cfg.Neighbors, Seed: cfg.Seed}
	Xr, yr, err := smote.Resample(X, labels)
	if err != nil {
		return nil, report, fmt.Errorf("oversample: %w", err)
	}

	model := NewLogisticRegression(cfg.MaxIter, cfg.Tol)
	if err := model.Fit(Xr, yr); err != nil {
		return nil, report, fmt.Errorf("fit classifier: %w", err)
	}

	report = FitReport{
		Rows:       len(rows),
		Resampled:  len(Xr),
		Features:   pre.Width(),
		Iterations: model.Iterations,
		Converged:  model.Converged,
	}
	p := &Pipeline{
		pre:   pre,
		model: model,
		metadata: Metadata{
			TrainedAt: time.Now().UTC(),
			Rows:      len(rows),
			Positives: countPositives(labels),
		},
	}
	return p, report, nil
}

// WithMetadata returns a copy of the pipeline carrying md.
func (p *Pipeline) WithMetadata(md Metadata) *Pipeline {
	return &Pipeline{pre: p.pre, model: p.model, metadata: md}
}

// Metadata returns the informational metadata of the pipeline.
func (p *Pipeline) Metadata() Metadata {
	return p.metadata
}

// Contract returns a copy of the feature contract the pipeline expects.
func (p *Pipeline) Contract() FeatureContract {
	c := p.pre.Contract
	out := FeatureContract{
		Numerical:   append([]string(nil), c.Numerical...),
		Categorical: append([]string(nil), c.Categorical...),
		Vocabulary:  make(map[string][]string, len(c.Vocabulary)),
	}
	for field, categories := range c.Vocabulary {
		out.Vocabulary[field] = append([]string(nil), categories...)
	}
	return out
}

// Predict returns the class label and the positive-class probability.
func (p *Pipeline) Predict(row Row) (int, float64, error) {
	x, err := p.pre.TransformRow(row)
	if err != nil {
		return 0, 0, err
	}
	return p.model.Predict(x)
}

// PredictProba returns positive-class probabilities for rows.
func (p *Pipeline) PredictProba(rows []Row) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		_, proba, err := p.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = proba
	}
	return out, nil
}

func checkBinary(labels []int) error {
	var seen [2]bool
	for _, label := range labels {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: got %d", ErrNonBinaryLabel, label)
		}
		seen[label] = true
	}
	if !seen[0] || !seen[1] {
		return ErrSingleClass
	}
	return nil
}

func countPositives(labels []int) int {
	n := 0
	for _, label := range labels {
		if label == 1 {
			n++
		}
	}
	return n
}
