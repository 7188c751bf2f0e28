package ml

import (
	"fmt"
	"sort"
)

// NumericImputer fills missing numerical values with the per-field median
// learned at fit time.
type NumericImputer struct {
	Medians []float64 `json:"medians"`
}

// Fit learns one median per numerical column from the observed values.
func (imp *NumericImputer) Fit(rows []Row, fields []string) error {
	medians := make([]float64, len(fields))
	for j, field := range fields {
		values := make([]float64, 0, len(rows))
		for _, row := range rows {
			if !IsMissing(row.Num[j]) {
				values = append(values, row.Num[j])
			}
		}
		if len(values) == 0 {
			return fmt.Errorf("impute %s: no observed values", field)
		}
		medians[j] = median(values)
	}
	imp.Medians = medians
	return nil
}

// Transform fills missing values in place.
func (imp *NumericImputer) Transform(row Row) {
	for j, v := range row.Num {
		if IsMissing(v) {
			row.Num[j] = imp.Medians[j]
		}
	}
}

// CategoricalImputer fills missing categorical values with the per-field
// mode learned at fit time. Ties resolve to the smallest value.
type CategoricalImputer struct {
	Modes []string `json:"modes"`
}

// Fit learns one mode per categorical column from the non-empty values.
func (imp *CategoricalImputer) Fit(rows []Row, fields []string) error {
	modes := make([]string, len(fields))
	for j, field := range fields {
		counts := make(map[string]int)
		for _, row := range rows {
			if row.Cat[j] != "" {
				counts[row.Cat[j]]++
			}
		}
		if len(counts) == 0 {
			return fmt.Errorf("impute %s: no observed values", field)
		}
		modes[j] = mostFrequent(counts)
	}
	imp.Modes = modes
	return nil
}

// Transform fills missing values in place.
func (imp *CategoricalImputer) Transform(row Row) {
	for j, v := range row.Cat {
		if v == "" {
			row.Cat[j] = imp.Modes[j]
		}
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func mostFrequent(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, key := range keys[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return best
}
