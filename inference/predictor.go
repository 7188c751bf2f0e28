package inference

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"strokerisk/ml"
)

// Prediction is the response body of a successful prediction.
type Prediction struct {
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

// Predictor serves predictions from one fitted pipeline. It is safe for
// concurrent use; the pipeline is never mutated after construction.
type Predictor struct {
	pipeline *ml.Pipeline
	cache    *lru.Cache[ml.Record, Prediction]
}

// NewPredictor wraps a loaded pipeline. cacheSize > 0 enables an in-memory
// LRU of results keyed by the parsed record.
func NewPredictor(pipeline *ml.Pipeline, cacheSize int) (*Predictor, error) {
	if pipeline == nil {
		return nil, ml.ErrNotFitted
	}
	p := &Predictor{pipeline: pipeline}
	if cacheSize > 0 {
		cache, err := lru.New[ml.Record, Prediction](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Pipeline returns the wrapped pipeline.
func (p *Predictor) Pipeline() *ml.Pipeline {
	return p.pipeline
}

// Predict maps a raw request payload and scores it.
func (p *Predictor) Predict(ctx context.Context, raw map[string]any) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	record, err := ParseInput(raw)
	if err != nil {
		return Prediction{}, err
	}
	return p.PredictRecord(record)
}

// PredictRecord scores an already typed record.
func (p *Predictor) PredictRecord(record ml.Record) (Prediction, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(record); ok {
			return cached, nil
		}
	}

	label, proba, err := p.pipeline.Predict(record.Row())
	if err != nil {
		return Prediction{}, &InputError{Msg: err.Error(), Err: err}
	}
	result := Prediction{
		Prediction:  label,
		Probability: Percent(proba),
	}

	if p.cache != nil {
		p.cache.Add(record, result)
	}
	return result, nil
}

// exactExponent asks decimal for every binary digit of a float64.
const exactExponent = -1074

// Percent converts a probability to a percentage rounded to two decimals.
// The float product is rounded from its exact binary value with ties to
// even, so 0.01005 gives 1.0 because 1.005 is stored as 1.00499...
func Percent(proba float64) float64 {
	return decimal.NewFromFloatWithExponent(proba*100, exactExponent).RoundBank(2).InexactFloat64()
}
