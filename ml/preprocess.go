package ml

import "fmt"

// Preprocessor runs imputation, encoding and column combination. Numerical
// columns come first, followed by the indicator columns of each categorical
// field in contract order.
type Preprocessor struct {
	Contract   FeatureContract    `json:"contract"`
	NumImputer NumericImputer     `json:"numeric_imputer"`
	CatImputer CategoricalImputer `json:"categorical_imputer"`
	Scaler     StandardScaler     `json:"scaler"`
	Encoder    OneHotEncoder      `json:"encoder"`
}

// NewPreprocessor returns an unfitted preprocessor for the default contract.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{Contract: DefaultContract()}
}

// Fit learns imputation statistics from rows, then fits the encoders on the
// imputed rows. Input rows are not modified.
func (p *Preprocessor) Fit(rows []Row) error {
	if len(rows) == 0 {
		return ErrEmptyDataset
	}
	for i, row := range rows {
		if err := p.Contract.checkRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := p.NumImputer.Fit(rows, p.Contract.Numerical); err != nil {
		return err
	}
	if err := p.CatImputer.Fit(rows, p.Contract.Categorical); err != nil {
		return err
	}

	imputed := make([]Row, len(rows))
	for i, row := range rows {
		imputed[i] = p.impute(row)
	}
	p.Scaler.Fit(imputed)
	p.Encoder.Fit(imputed)

	vocabulary := make(map[string][]string, len(p.Contract.Categorical))
	for j, field := range p.Contract.Categorical {
		vocabulary[field] = append([]string(nil), p.Encoder.Categories[j]...)
	}
	p.Contract.Vocabulary = vocabulary
	return nil
}

func (p *Preprocessor) impute(row Row) Row {
	out := row.clone()
	p.NumImputer.Transform(out)
	p.CatImputer.Transform(out)
	return out
}

// Width is the length of a transformed feature vector.
func (p *Preprocessor) Width() int {
	return len(p.Contract.Numerical) + p.Encoder.Width()
}

// TransformRow maps one row to its feature vector using the frozen
// statistics.
func (p *Preprocessor) TransformRow(row Row) ([]float64, error) {
	if err := p.Contract.checkRow(row); err != nil {
		return nil, err
	}
	imputed := p.impute(row)
	vector := make([]float64, 0, p.Width())
	vector = p.Scaler.Transform(vector, imputed)
	vector = p.Encoder.Transform(vector, imputed)
	return vector, nil
}

// Transform maps rows to feature vectors.
func (p *Preprocessor) Transform(rows []Row) ([][]float64, error) {
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vector, err := p.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// FeatureNames lists the output columns in order.
func (p *Preprocessor) FeatureNames() []string {
	return p.Contract.FeatureNames()
}

func (p *Preprocessor) validate() error {
	numerical, categorical := len(p.Contract.Numerical), len(p.Contract.Categorical)
	switch {
	case numerical == 0 || categorical == 0:
		return fmt.Errorf("%w: empty contract", ErrInvalidArtifact)
	case len(p.NumImputer.Medians) != numerical || len(p.Scaler.Mean) != numerical || len(p.Scaler.Scale) != numerical:
		return fmt.Errorf("%w: numerical statistics do not match contract", ErrInvalidArtifact)
	case len(p.CatImputer.Modes) != categorical || len(p.Encoder.Categories) != categorical:
		return fmt.Errorf("%w: categorical statistics do not match contract", ErrInvalidArtifact)
	}
	for j, scale := range p.Scaler.Scale {
		if scale == 0 {
			return fmt.Errorf("%w: zero scale for %s", ErrInvalidArtifact, p.Contract.Numerical[j])
		}
	}
	p.Encoder.buildIndex()
	return nil
}
