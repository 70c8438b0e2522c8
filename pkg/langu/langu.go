// Package langu 维护语言编号、各语言的缺省文案以及按语言选列的投影规则。
package langu

import (
	"fmt"

	"github.com/iWorld-y/report_forge/pkg/model"
)

// Defaults 某一语言在字段缺值时填入的固定文案
type Defaults struct {
	Summary string `yaml:"summary_default"`
	Group   string `yaml:"group_default"`
}

// Table 语言编号 -> 缺省文案，由配置注入，不再使用包级全局变量
type Table map[string]Defaults

// BuiltinDefaults 内置的四种语言缺省文案
func BuiltinDefaults() Table {
	return Table{
		"1": {Summary: "本項無補充說明", Group: "其他"},
		"2": {Summary: "No additional information for this item.", Group: "Others"},
		"3": {Summary: "この項目に関する追加情報はありません。", Group: "その他"},
		"4": {Summary: "本项无补充说明。", Group: "其他"},
	}
}

// Merge 用覆盖表补充/替换内置文案，返回合并结果
func (t Table) Merge(overrides Table) Table {
	merged := make(Table, len(t))
	for k, v := range t {
		merged[k] = v
	}
	for k, v := range overrides {
		base := merged[k]
		if v.Summary != "" {
			base.Summary = v.Summary
		}
		if v.Group != "" {
			base.Group = v.Group
		}
		merged[k] = base
	}
	return merged
}

// SummaryLiterals 全部语言的缺省摘要文案，改写阶段用来识别直通文本
func (t Table) SummaryLiterals() []string {
	literals := make([]string, 0, len(t))
	for _, no := range []string{"1", "2", "3", "4"} {
		if d, ok := t[no]; ok && d.Summary != "" {
			literals = append(literals, d.Summary)
		}
	}
	return literals
}

// ColumnSet 某一语言投影所需的四个列名
type ColumnSet struct {
	Group   string
	Item    string
	Comment string
	Summary string
}

// subset 各语言对应的列集合，列名与补全后的主表一致
var subset = map[string]ColumnSet{
	"1": {Group: "TCNAME_GROUP", Item: "TCNAME_ITEM", Comment: "COMMENT", Summary: "TCNAME_SUMMARY"},
	"2": {Group: "ENNAME_GROUP", Item: "ENNAME_ITEM", Comment: "ENNAME_COMMENT", Summary: "ENNAME_SUMMARY"},
	"3": {Group: "JPNAME_GROUP", Item: "JPNAME_ITEM", Comment: "JPNAME_COMMENT", Summary: "JPNAME_SUMMARY"},
	"4": {Group: "SCNAME_GROUP", Item: "SCNAME_ITEM", Comment: "SCNAME_COMMENT", Summary: "SCNAME_SUMMARY"},
}

// Columns 取某一语言的列集合，未知语言返回错误而不是静默回退
func Columns(langNo string) (ColumnSet, error) {
	cs, ok := subset[langNo]
	if !ok {
		return ColumnSet{}, fmt.Errorf("未知的语言编号: %q", langNo)
	}
	return cs, nil
}

// Field 按列名取值
func Field(r model.Row, col string) (string, error) {
	switch col {
	case "COMMENT":
		return r.Comment, nil
	case "ENNAME_COMMENT":
		return r.ENNameComment, nil
	case "JPNAME_COMMENT":
		return r.JPNameComment, nil
	case "SCNAME_COMMENT":
		return r.SCNameComment, nil
	case "TCNAME_GROUP":
		return r.TCNameGroup, nil
	case "ENNAME_GROUP":
		return r.ENNameGroup, nil
	case "JPNAME_GROUP":
		return r.JPNameGroup, nil
	case "SCNAME_GROUP":
		return r.SCNameGroup, nil
	case "TCNAME_ITEM":
		return r.TCNameItem, nil
	case "ENNAME_ITEM":
		return r.ENNameItem, nil
	case "JPNAME_ITEM":
		return r.JPNameItem, nil
	case "SCNAME_ITEM":
		return r.SCNameItem, nil
	case "TCNAME_SUMMARY":
		return r.TCNameSummary, nil
	case "ENNAME_SUMMARY":
		return r.ENNameSummary, nil
	case "JPNAME_SUMMARY":
		return r.JPNameSummary, nil
	case "SCNAME_SUMMARY":
		return r.SCNameSummary, nil
	default:
		return "", fmt.Errorf("未知的列名: %q", col)
	}
}

// Validate 启动时校验每种语言的列集合都能在主表上解析
func Validate() error {
	var zero model.Row
	for no, cs := range subset {
		for _, col := range []string{cs.Group, cs.Item, cs.Comment, cs.Summary} {
			if _, err := Field(zero, col); err != nil {
				return fmt.Errorf("语言 %s 的列集合无效: %w", no, err)
			}
		}
	}
	return nil
}

// Project 把一个 record 的行投影为语言无关的通用列
func Project(langNo string, rows []model.Row) ([]model.ProjectedRow, error) {
	cs, err := Columns(langNo)
	if err != nil {
		return nil, err
	}

	projected := make([]model.ProjectedRow, 0, len(rows))
	for _, r := range rows {
		group, _ := Field(r, cs.Group)
		item, _ := Field(r, cs.Item)
		comment, _ := Field(r, cs.Comment)
		summary, _ := Field(r, cs.Summary)
		projected = append(projected, model.ProjectedRow{
			Group:    group,
			ItemCode: r.ItemCode,
			ItemName: item,
			Comment:  comment,
			Summary:  summary,
		})
	}
	return projected, nil
}
