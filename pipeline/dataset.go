// Package pipeline reads the labeled training dataset and normalizes it into
// the positional rows the ml package fits on.
package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"

	"strokerisk/ml"
)

var (
	ErrMissingLabel   = errors.New("label column missing")
	ErrMissingField   = errors.New("declared field missing from dataset")
	ErrNonBinaryLabel = errors.New("label must be 0 or 1")
)

// Dataset 规范化后的训练数据表
// Header 按文件顺序列出保留的列，列名小写且不含id列
type Dataset struct {
	Header []string
	Rows   []ml.Row
	Labels []int
	Issues []QualityIssue
}

// LoadCSV 读取并规范化数据集文件
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV 解析带表头的CSV数据
// 列名转为小写并去掉id列，所有声明的字段和标签列必须存在
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ml.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := NormalizeHeader(header)

	index := make(map[string]int, len(columns))
	var kept []string
	for i, name := range columns {
		index[name] = i
		if name != ml.IDField {
			kept = append(kept, name)
		}
	}
	labelCol, ok := index[ml.LabelField]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingLabel, ml.LabelField)
	}
	numCols, err := lookup(index, ml.NumericalFields())
	if err != nil {
		return nil, err
	}
	catCols, err := lookup(index, ml.CategoricalFields())
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Header: kept}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := ml.Row{
			Num: make([]float64, len(numCols)),
			Cat: make([]string, len(catCols)),
		}
		for j, col := range numCols {
			v, err := parseNumber(record[col])
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, columns[col], err)
			}
			row.Num[j] = v
		}
		for j, col := range catCols {
			row.Cat[j] = parseCategory(record[col])
		}
		label, err := parseLabel(record[labelCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}
	if len(ds.Rows) == 0 {
		return nil, ml.ErrEmptyDataset
	}

	ds.Rows, ds.Issues = NewDataCleaner().Clean(ds.Rows)
	return ds, nil
}

// NormalizeHeader 规范化列名，去除空白并转为小写
func NormalizeHeader(header []string) []string {
	lower := cases.Lower(language.Und)
	out := make([]string, len(header))
	for i, name := range header {
		out[i] = lower.String(strings.TrimSpace(name))
	}
	return out
}

func lookup(index map[string]int, fields []string) ([]int, error) {
	cols := make([]int, len(fields))
	for i, field := range fields {
		col, ok := index[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, field)
		}
		cols[i] = col
	}
	return cols, nil
}

func isMissingMarker(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "na", "nan", "null":
		return true
	}
	return false
}

func parseNumber(s string) (float64, error) {
	if isMissingMarker(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseCategory(s string) string {
	if isMissingMarker(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func parseLabel(s string) (int, error) {
	if isMissingMarker(s) {
		return 0, fmt.Errorf("%w: missing", ErrNonBinaryLabel)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || (v != 0 && v != 1) {
		return 0, fmt.Errorf("%w: %q", ErrNonBinaryLabel, s)
	}
	return int(v), nil
}

// Summary 数据集摘要
type Summary struct {
	Rows      int
	Columns   int
	Positives int
	Negatives int
	Missing   map[string]int
	Issues    int
}

// Summary 统计行数、特征列、类别分布和缺失值
// 缺失值在清洗之后统计
func (ds *Dataset) Summary() Summary {
	s := Summary{
		Rows:    len(ds.Rows),
		Columns: len(ds.Header) - 1,
		Missing: make(map[string]int),
		Issues:  len(ds.Issues),
	}
	numerical, categorical := ml.NumericalFields(), ml.CategoricalFields()
	for i, row := range ds.Rows {
		if ds.Labels[i] == 1 {
			s.Positives++
		} else {
			s.Negatives++
		}
		for j, v := range row.Num {
			if ml.IsMissing(v) {
				s.Missing[numerical[j]]++
			}
		}
		for j, v := range row.Cat {
			if v == "" {
				s.Missing[categorical[j]]++
			}
		}
	}
	return s
}
