// Package mltest generates deterministic synthetic stroke datasets for tests.
package mltest

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"strokerisk/ml"
)

var workTypes = []string{"Private", "Self-employed", "Govt_job", "children", "Never_worked"}

// Dataset returns n rows of which positives carry label 1. Positive rows are
// older, with higher glucose and more risk factors. Every tenth row misses
// bmi and every seventh misses smoking_status.
func Dataset(n, positives int, seed int64) ([]ml.Row, []int) {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]ml.Row, n)
	labels := make([]int, n)
	stride := n
	if positives > 0 {
		stride = n / positives
	}
	assigned := 0
	for i := 0; i < n; i++ {
		positive := positives > 0 && i%stride == 0 && assigned < positives
		if positive {
			assigned++
			labels[i] = 1
		}
		rows[i] = row(rng, positive, i)
	}
	return rows, labels
}

func row(rng *rand.Rand, positive bool, i int) ml.Row {
	var age, glucose, bmi float64
	hypertension, heart := 0, 0
	smoking := "never smoked"
	if positive {
		age = 65 + rng.Float64()*20
		glucose = 180 + rng.Float64()*80
		bmi = 28 + rng.Float64()*12
		if rng.Float64() < 0.7 {
			hypertension = 1
		}
		if rng.Float64() < 0.5 {
			heart = 1
		}
		smoking = "smokes"
	} else {
		age = 18 + rng.Float64()*37
		glucose = 70 + rng.Float64()*60
		bmi = 18 + rng.Float64()*12
		if rng.Float64() < 0.05 {
			hypertension = 1
		}
		if rng.Float64() < 0.5 {
			smoking = "Unknown"
		}
	}
	married := "No"
	if rng.Float64() < 0.6 {
		married = "Yes"
	}
	residence := "Urban"
	if rng.Float64() < 0.5 {
		residence = "Rural"
	}
	if i%10 == 3 {
		bmi = math.NaN()
	}
	if i%7 == 5 {
		smoking = ""
	}
	return ml.Row{
		Num: []float64{age, glucose, bmi},
		Cat: []string{
			strconv.Itoa(hypertension),
			strconv.Itoa(heart),
			married,
			workTypes[rng.Intn(len(workTypes))],
			residence,
			smoking,
		},
	}
}

// Pipeline fits a pipeline on a 200-row dataset with 20 positives.
func Pipeline(t testing.TB) *ml.Pipeline {
	t.Helper()
	rows, labels := Dataset(200, 20, 7)
	p, _, err := ml.FitPipeline(rows, labels, ml.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("fit pipeline: %v", err)
	}
	return p
}

// Record returns a complete, low-risk inference record.
func Record() ml.Record {
	return ml.Record{
		Age:             45,
		Hypertension:    0,
		HeartDisease:    0,
		EverMarried:     "Yes",
		WorkType:        "Private",
		ResidenceType:   "Urban",
		AvgGlucoseLevel: 100,
		BMI:             25,
		SmokingStatus:   "never smoked",
	}
}
