package ml

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes numerical columns with the training-time
// population mean and standard deviation.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit learns mean and scale per column. Constant columns get a scale of 1.
func (s *StandardScaler) Fit(rows []Row) {
	if len(rows) == 0 {
		return
	}
	cols := len(rows[0].Num)
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	column := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			column[i] = row.Num[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
}

// Transform appends the standardized values of row to dst.
func (s *StandardScaler) Transform(dst []float64, row Row) []float64 {
	for j, v := range row.Num {
		dst = append(dst, (v-s.Mean[j])/s.Scale[j])
	}
	return dst
}

// OneHotEncoder expands categorical columns into indicator columns. The
// categories of each field are sorted; a value never seen at fit time
// encodes to all zeros for that field.
type OneHotEncoder struct {
	Categories [][]string `json:"categories"`

	index []map[string]int
}

// Fit learns the sorted vocabulary of each categorical column.
func (e *OneHotEncoder) Fit(rows []Row) {
	if len(rows) == 0 {
		return
	}
	cols := len(rows[0].Cat)
	e.Categories = make([][]string, cols)
	for j := 0; j < cols; j++ {
		seen := make(map[string]struct{})
		for _, row := range rows {
			seen[row.Cat[j]] = struct{}{}
		}
		categories := make([]string, 0, len(seen))
		for category := range seen {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		e.Categories[j] = categories
	}
	e.buildIndex()
}

func (e *OneHotEncoder) buildIndex() {
	e.index = make([]map[string]int, len(e.Categories))
	for j, categories := range e.Categories {
		e.index[j] = make(map[string]int, len(categories))
		for k, category := range categories {
			e.index[j][category] = k
		}
	}
}

// Width is the number of indicator columns produced.
func (e *OneHotEncoder) Width() int {
	width := 0
	for _, categories := range e.Categories {
		width += len(categories)
	}
	return width
}

// Transform appends the indicator columns of row to dst.
func (e *OneHotEncoder) Transform(dst []float64, row Row) []float64 {
	for j, value := range row.Cat {
		start := len(dst)
		for range e.Categories[j] {
			dst = append(dst, 0)
		}
		if k, ok := e.index[j][value]; ok {
			dst[start+k] = 1
		}
	}
	return dst
}
