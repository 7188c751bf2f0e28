package ml

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SMOTE oversamples the minority class by interpolating between a minority
// sample and one of its nearest minority neighbors until both classes have
// the same count.
type SMOTE struct {
	Neighbors int
	Seed      int64
}

// Resample returns X and y extended with synthetic minority samples. The
// inputs are not modified.
func (s SMOTE) Resample(X [][]float64, y []int) ([][]float64, []int, error) {
	if len(X) != len(y) {
		return nil, nil, ErrLabelMismatch
	}
	var positives, negatives []int
	for i, label := range y {
		if label == 1 {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}
	minority, majority, minorityLabel := positives, negatives, 1
	if len(negatives) < len(positives) {
		minority, majority, minorityLabel = negatives, positives, 0
	}

	outX := append([][]float64(nil), X...)
	outY := append([]int(nil), y...)
	deficit := len(majority) - len(minority)
	if deficit == 0 {
		return outX, outY, nil
	}
	if len(minority) < 2 {
		return nil, nil, fmt.Errorf("%w: %d minority rows", ErrTooFewMinority, len(minority))
	}

	k := s.Neighbors
	if k <= 0 {
		k = 5
	}
	if k > len(minority)-1 {
		k = len(minority) - 1
	}

	neighbors := nearestNeighbors(X, minority, k)
	rng := rand.New(rand.NewSource(s.Seed))
	for n := 0; n < deficit; n++ {
		i := rng.Intn(len(minority))
		base := X[minority[i]]
		other := X[neighbors[i][rng.Intn(k)]]
		gap := rng.Float64()
		diff := floats.SubTo(make([]float64, len(base)), other, base)
		sample := floats.AddScaledTo(make([]float64, len(base)), base, gap, diff)
		outX = append(outX, sample)
		outY = append(outY, minorityLabel)
	}
	return outX, outY, nil
}

// nearestNeighbors returns, for each index in members, the k closest other
// members by Euclidean distance. Ties keep index order.
func nearestNeighbors(X [][]float64, members []int, k int) [][]int {
	out := make([][]int, len(members))
	type candidate struct {
		index int
		dist  float64
	}
	for i, a := range members {
		candidates := make([]candidate, 0, len(members)-1)
		for _, b := range members {
			if a == b {
				continue
			}
			candidates = append(candidates, candidate{index: b, dist: floats.Distance(X[a], X[b], 2)})
		}
		sort.SliceStable(candidates, func(p, q int) bool {
			return candidates[p].dist < candidates[q].dist
		})
		out[i] = make([]int, k)
		for n := 0; n < k; n++ {
			out[i][n] = candidates[n].index
		}
	}
	return out
}
