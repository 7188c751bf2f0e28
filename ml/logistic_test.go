package ml

import "testing"

func TestLogisticRegressionSeparates(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 40; i++ {
		v := float64(i)/10 - 2
		X = append(X, []float64{v, 0.5})
		if v > 0 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	m := NewLogisticRegression(0, 0)
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Converged {
		t.Fatalf("expected convergence, stopped after %d iterations", m.Iterations)
	}
	if m.Weights[0] <= 0 {
		t.Fatalf("expected positive weight, got %v", m.Weights[0])
	}

	low, pLow, err := m.Predict([]float64{-2, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	high, pHigh, _ := m.Predict([]float64{2, 0.5})
	if low != 0 || high != 1 {
		t.Fatalf("unexpected labels low=%d high=%d", low, high)
	}
	if !(pLow < 0.5 && pHigh > 0.5) {
		t.Fatalf("unexpected probabilities low=%v high=%v", pLow, pHigh)
	}
}

func TestLogisticRegressionNotFitted(t *testing.T) {
	m := NewLogisticRegression(10, 0)
	if _, err := m.PredictProba([]float64{1}); err != ErrNotFitted {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestSigmoidStable(t *testing.T) {
	if sigmoid(-1000) != 0 || sigmoid(1000) != 1 {
		t.Fatalf("sigmoid overflowed: %v %v", sigmoid(-1000), sigmoid(1000))
	}
	if softplus(-1000) != 0 || softplus(1000) != 1000 {
		t.Fatalf("softplus overflowed: %v %v", softplus(-1000), softplus(1000))
	}
}
