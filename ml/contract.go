package ml

import (
	"math"
	"strconv"
)

// Field names of the feature contract. They match the lowercased dataset header.
const (
	FieldAge             = "age"
	FieldHypertension    = "hypertension"
	FieldHeartDisease    = "heart_disease"
	FieldEverMarried     = "ever_married"
	FieldWorkType        = "work_type"
	FieldResidenceType   = "residence_type"
	FieldAvgGlucoseLevel = "avg_glucose_level"
	FieldBMI             = "bmi"
	FieldSmokingStatus   = "smoking_status"

	LabelField = "stroke"
	IDField    = "id"
)

// NumericalFields returns the numerical fields in contract order.
func NumericalFields() []string {
	return []string{FieldAge, FieldAvgGlucoseLevel, FieldBMI}
}

// CategoricalFields returns the categorical fields in contract order.
func CategoricalFields() []string {
	return []string{
		FieldHypertension,
		FieldHeartDisease,
		FieldEverMarried,
		FieldWorkType,
		FieldResidenceType,
		FieldSmokingStatus,
	}
}

// Record is one subject's data. Missing numerical values are NaN and
// missing categorical values are empty strings.
type Record struct {
	Age             float64
	Hypertension    int
	HeartDisease    int
	EverMarried     string
	WorkType        string
	ResidenceType   string
	AvgGlucoseLevel float64
	BMI             float64
	SmokingStatus   string
}

// Row projects the record onto the contract column order.
func (r Record) Row() Row {
	return Row{
		Num: []float64{r.Age, r.AvgGlucoseLevel, r.BMI},
		Cat: []string{
			strconv.Itoa(r.Hypertension),
			strconv.Itoa(r.HeartDisease),
			r.EverMarried,
			r.WorkType,
			r.ResidenceType,
			r.SmokingStatus,
		},
	}
}

// Row is the positional form of a record: numerical values follow
// NumericalFields and categorical values follow CategoricalFields.
type Row struct {
	Num []float64
	Cat []string
}

// IsMissing reports whether a numerical value is a missing marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

func (r Row) clone() Row {
	return Row{
		Num: append([]float64(nil), r.Num...),
		Cat: append([]string(nil), r.Cat...),
	}
}

// FeatureContract is the schema a fitted pipeline expects: field names in
// order and the category vocabulary observed for each categorical field.
type FeatureContract struct {
	Numerical   []string            `json:"numerical"`
	Categorical []string            `json:"categorical"`
	Vocabulary  map[string][]string `json:"vocabulary"`
}

// DefaultContract returns the contract with an empty vocabulary.
func DefaultContract() FeatureContract {
	return FeatureContract{
		Numerical:   NumericalFields(),
		Categorical: CategoricalFields(),
		Vocabulary:  map[string][]string{},
	}
}

// FeatureNames lists the combined output columns: numerical fields first,
// then one indicator per (field, category) in vocabulary order.
func (c FeatureContract) FeatureNames() []string {
	names := append([]string(nil), c.Numerical...)
	for _, field := range c.Categorical {
		for _, category := range c.Vocabulary[field] {
			names = append(names, field+"="+category)
		}
	}
	return names
}

func (c FeatureContract) checkRow(row Row) error {
	if len(row.Num) != len(c.Numerical) || len(row.Cat) != len(c.Categorical) {
		return ErrShapeMismatch
	}
	return nil
}
