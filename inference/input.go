// Package inference maps untrusted request payloads onto typed records and
// serves predictions from a loaded, read-only pipeline.
package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"strokerisk/ml"
)

// Request keys. Callers send the average glucose level as glucose_level;
// avg_glucose_level is accepted as a fallback.
const (
	KeyAge             = "age"
	KeyGlucoseLevel    = "glucose_level"
	KeyAvgGlucoseLevel = "avg_glucose_level"
	KeyBMI             = "bmi"
	KeyHypertension    = "hypertension"
	KeyHeartDisease    = "heart_disease"
	KeyEverMarried     = "ever_married"
	KeyWorkType        = "work_type"
	KeyResidenceType   = "residence_type"
	KeySmokingStatus   = "smoking_status"
)

// Defaults applied when an optional field is absent, null or empty.
const (
	DefaultFlag          = 0
	DefaultEverMarried   = "No"
	DefaultWorkType      = "Private"
	DefaultResidenceType = "Urban"
	DefaultSmokingStatus = "never"
)

// ErrNoInput is returned for an empty payload.
var ErrNoInput = errors.New("no input data provided")

// InputError is a client-input failure: missing, malformed or uncoercible
// request data.
type InputError struct {
	Field string
	Msg   string
	Err   error
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err should be answered as a client error.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.Is(err, ErrNoInput) || errors.As(err, &inputErr)
}

// ParseInput applies the field mapping, defaulting and coercion rules:
// age, glucose_level and bmi are required floats; hypertension and
// heart_disease default to 0; ever_married, work_type, residence_type and
// smoking_status default to No, Private, Urban and never.
func ParseInput(raw map[string]any) (ml.Record, error) {
	var record ml.Record
	if len(raw) == 0 {
		return record, ErrNoInput
	}

	age, glucose, bmi := raw[KeyAge], raw[KeyGlucoseLevel], raw[KeyBMI]
	if glucose == nil {
		glucose = raw[KeyAvgGlucoseLevel]
	}
	if age == nil || glucose == nil || bmi == nil {
		return record, &InputError{Msg: "missing required numeric fields: age, glucose_level, or bmi"}
	}

	var err error
	if record.Age, err = toFloat(KeyAge, age); err != nil {
		return record, err
	}
	if record.AvgGlucoseLevel, err = toFloat(KeyGlucoseLevel, glucose); err != nil {
		return record, err
	}
	if record.BMI, err = toFloat(KeyBMI, bmi); err != nil {
		return record, err
	}
	if record.Hypertension, err = toFlag(KeyHypertension, raw[KeyHypertension]); err != nil {
		return record, err
	}
	if record.HeartDisease, err = toFlag(KeyHeartDisease, raw[KeyHeartDisease]); err != nil {
		return record, err
	}
	if record.EverMarried, err = toCategory(KeyEverMarried, raw[KeyEverMarried], DefaultEverMarried); err != nil {
		return record, err
	}
	if record.WorkType, err = toCategory(KeyWorkType, raw[KeyWorkType], DefaultWorkType); err != nil {
		return record, err
	}
	if record.ResidenceType, err = toCategory(KeyResidenceType, raw[KeyResidenceType], DefaultResidenceType); err != nil {
		return record, err
	}
	if record.SmokingStatus, err = toCategory(KeySmokingStatus, raw[KeySmokingStatus], DefaultSmokingStatus); err != nil {
		return record, err
	}
	return record, nil
}

func toFloat(field string, v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, &InputError{Field: field, Msg: fmt.Sprintf("could not convert %q to float", x.String()), Err: err}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &InputError{Field: field, Msg: fmt.Sprintf("could not convert %q to float", x), Err: err}
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	default:
		return 0, &InputError{Field: field, Msg: fmt.Sprintf("unsupported type %T", v)}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InputError{Field: field, Msg: "must be a finite number"}
	}
	if f < 0 {
		return 0, &InputError{Field: field, Msg: "must not be negative"}
	}
	return f, nil
}

func toFlag(field string, v any) (int, error) {
	if v == nil {
		return DefaultFlag, nil
	}
	var n int
	switch x := v.(type) {
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, &InputError{Field: field, Msg: fmt.Sprintf("could not convert %q to int", x), Err: err}
		}
		n = parsed
	case bool:
		if x {
			n = 1
		}
	default:
		f, err := toFloat(field, v)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) {
			return 0, &InputError{Field: field, Msg: fmt.Sprintf("%v is not an integer", f)}
		}
		n = int(f)
	}
	if n != 0 && n != 1 {
		return 0, &InputError{Field: field, Msg: fmt.Sprintf("must be 0 or 1, got %d", n)}
	}
	return n, nil
}

func toCategory(field string, v any, def string) (string, error) {
	switch x := v.(type) {
	case nil:
		return def, nil
	case string:
		if x == "" {
			return def, nil
		}
		return x, nil
	default:
		return "", &InputError{Field: field, Msg: fmt.Sprintf("must be a string, got %T", v)}
	}
}
