package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIter = 1000
	defaultTol     = 1e-6
	// interceptRidge keeps the Hessian positive definite when the data is
	// separable along the intercept direction.
	interceptRidge = 1e-8
)

// LogisticRegression is an L2-regularised binary classifier fit by Newton's
// method. C is the inverse regularisation strength; the intercept is not
// penalised.
type LogisticRegression struct {
	Weights    []float64 `json:"weights"`
	Intercept  float64   `json:"intercept"`
	C          float64   `json:"c"`
	MaxIter    int       `json:"max_iter"`
	Tol        float64   `json:"tol"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
}

// NewLogisticRegression returns a classifier with C=1 and the given cap.
func NewLogisticRegression(maxIter int, tol float64) *LogisticRegression {
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	if tol <= 0 {
		tol = defaultTol
	}
	return &LogisticRegression{C: 1, MaxIter: maxIter, Tol: tol}
}

// Fit estimates weights and intercept. Reaching MaxIter without meeting Tol
// is not an error; Converged reports it.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return ErrEmptyDataset
	}
	if len(X) != len(y) {
		return ErrLabelMismatch
	}
	if m.C <= 0 {
		m.C = 1
	}
	features := len(X[0])
	d := features + 1
	lambda := 1 / m.C

	// theta holds the weights followed by the intercept.
	theta := make([]float64, d)
	grad := make([]float64, d)
	hess := make([]float64, d*d)
	candidate := make([]float64, d)
	loss := m.objective(X, y, theta, lambda)

	m.Converged = false
	m.Iterations = 0
	for iter := 1; iter <= m.MaxIter; iter++ {
		m.Iterations = iter
		for i := range grad {
			grad[i] = 0
		}
		for i := range hess {
			hess[i] = 0
		}
		for i, x := range X {
			if len(x) != features {
				return fmt.Errorf("row %d: %w", i, ErrShapeMismatch)
			}
			p := sigmoid(floats.Dot(theta[:features], x) + theta[features])
			r := p - float64(y[i])
			s := p * (1 - p)
			for a := 0; a < d; a++ {
				xa := augmented(x, a)
				grad[a] += r * xa
				for b := a; b < d; b++ {
					hess[a*d+b] += s * xa * augmented(x, b)
				}
			}
		}
		for a := 0; a < features; a++ {
			grad[a] += lambda * theta[a]
			hess[a*d+a] += lambda
		}
		hess[features*d+features] += interceptRidge

		if floats.Norm(grad, math.Inf(1)) < m.Tol {
			m.Converged = true
			break
		}

		step, err := newtonStep(d, hess, grad)
		if err != nil {
			return err
		}

		slope := floats.Dot(grad, step)
		t := 1.0
		for {
			floats.AddScaledTo(candidate, theta, -t, step)
			next := m.objective(X, y, candidate, lambda)
			if next <= loss-1e-4*t*slope || t < 1e-10 {
				loss = next
				break
			}
			t /= 2
		}
		copy(theta, candidate)

		if t*floats.Norm(step, math.Inf(1)) < m.Tol {
			m.Converged = true
			break
		}
	}

	m.Weights = append([]float64(nil), theta[:features]...)
	m.Intercept = theta[features]
	return nil
}

func newtonStep(d int, hess, grad []float64) ([]float64, error) {
	h := mat.NewSymDense(d, hess)
	var chol mat.Cholesky
	if ok := chol.Factorize(h); !ok {
		return nil, errors.New("logistic regression: hessian is not positive definite")
	}
	var step mat.VecDense
	if err := chol.SolveVecTo(&step, mat.NewVecDense(d, grad)); err != nil {
		return nil, fmt.Errorf("logistic regression: %w", err)
	}
	return mat.Col(nil, 0, &step), nil
}

func augmented(x []float64, j int) float64 {
	if j == len(x) {
		return 1
	}
	return x[j]
}

func (m *LogisticRegression) objective(X [][]float64, y []int, theta []float64, lambda float64) float64 {
	features := len(theta) - 1
	loss := 0.0
	for i, x := range X {
		z := floats.Dot(theta[:features], x) + theta[features]
		loss += softplus(z) - float64(y[i])*z
	}
	w := theta[:features]
	return loss + 0.5*lambda*floats.Dot(w, w)
}

// PredictProba returns the probability of the positive class.
func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != len(m.Weights) {
		return 0, ErrShapeMismatch
	}
	return sigmoid(floats.Dot(m.Weights, x) + m.Intercept), nil
}

// Predict returns 1 when the positive probability exceeds 0.5.
func (m *LogisticRegression) Predict(x []float64) (int, float64, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return 0, 0, err
	}
	if p > 0.5 {
		return 1, p, nil
	}
	return 0, p, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
