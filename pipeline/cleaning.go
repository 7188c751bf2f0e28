package pipeline

import (
	"fmt"
	"math"
	"strconv"

	"strokerisk/ml"
)

// CleaningRule 清洗规则，原地修正一行数据
// 返回非nil的issue描述发现的问题，该行始终保留
type CleaningRule interface {
	Apply(row ml.Row) *QualityIssue
	Name() string
}

// QualityIssue 数据质量问题
type QualityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // low, medium, high
	Message  string `json:"message"`
	Row      int    `json:"row"`
	Field    string `json:"field"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int            `json:"total_processed"`
	Passed         int            `json:"passed"`
	Corrected      int            `json:"corrected"`
	Issues         map[string]int `json:"issues"`
}

// DataCleaner 数据清洗器
type DataCleaner struct {
	rules []CleaningRule
	stats CleaningStats
}

// NewDataCleaner 创建带默认规则的数据清洗器
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		stats: CleaningStats{Issues: make(map[string]int)},
	}
	cleaner.AddRule(NewFlagRule(ml.FieldHypertension, ml.FieldHeartDisease))
	cleaner.AddRule(NewNonNegativeRule())
	return cleaner
}

// AddRule 添加清洗规则
func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Clean 对每一行应用所有规则
// 行数据原地修改，并与发现的问题一起返回
func (dc *DataCleaner) Clean(rows []ml.Row) ([]ml.Row, []QualityIssue) {
	var issues []QualityIssue
	for i, row := range rows {
		dc.stats.TotalProcessed++
		var rowIssues []QualityIssue
		for _, rule := range dc.rules {
			if issue := rule.Apply(row); issue != nil {
				issue.Row = i
				rowIssues = append(rowIssues, *issue)
				dc.stats.Issues[rule.Name()]++
			}
		}
		if len(rowIssues) > 0 {
			dc.stats.Corrected++
			issues = append(issues, rowIssues...)
		} else {
			dc.stats.Passed++
		}
	}
	return rows, issues
}

// Stats 获取清洗统计
func (dc *DataCleaner) Stats() CleaningStats {
	return dc.stats
}

// NonNegativeRule 非负规则，负数标记为缺失值，由填充器替换
type NonNegativeRule struct {
	fields []string
}

func NewNonNegativeRule() *NonNegativeRule {
	return &NonNegativeRule{fields: ml.NumericalFields()}
}

func (r *NonNegativeRule) Name() string {
	return "non_negative"
}

func (r *NonNegativeRule) Apply(row ml.Row) *QualityIssue {
	var issue *QualityIssue
	for j, v := range row.Num {
		if v < 0 {
			issue = &QualityIssue{
				Type:     r.Name(),
				Severity: "medium",
				Message:  fmt.Sprintf("negative %s %v treated as missing", r.fields[j], v),
				Field:    r.fields[j],
			}
			row.Num[j] = math.NaN()
		}
	}
	return issue
}

// FlagRule 0/1标志规则，"1.0"规范化为"1"，其他值标记为缺失
type FlagRule struct {
	positions map[int]string
}

func NewFlagRule(fields ...string) *FlagRule {
	positions := make(map[int]string)
	for j, name := range ml.CategoricalFields() {
		for _, field := range fields {
			if name == field {
				positions[j] = name
			}
		}
	}
	return &FlagRule{positions: positions}
}

func (r *FlagRule) Name() string {
	return "binary_flag"
}

func (r *FlagRule) Apply(row ml.Row) *QualityIssue {
	var issue *QualityIssue
	for j, field := range r.positions {
		value := row.Cat[j]
		if value == "" || value == "0" || value == "1" {
			continue
		}
		if v, err := strconv.ParseFloat(value, 64); err == nil && (v == 0 || v == 1) {
			row.Cat[j] = strconv.Itoa(int(v))
			continue
		}
		issue = &QualityIssue{
			Type:     r.Name(),
			Severity: "medium",
			Message:  fmt.Sprintf("%s value %q is not 0/1, treated as missing", field, value),
			Field:    field,
		}
		row.Cat[j] = ""
	}
	return issue
}
