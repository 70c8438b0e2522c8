// Package preprocess 对补全后的主表做文本清洗、缺省值填充、去重与排序。
package preprocess

import (
	"regexp"
	"sort"
	"strings"

	"github.com/iWorld-y/report_forge/pkg/langu"
	"github.com/iWorld-y/report_forge/pkg/model"
)

// 全角标点 -> 半角对照表，仅作用于所见（COMMENT）字段
var fullWidthMap = map[rune]rune{
	'（': '(', '）': ')',
	'【': '[', '】': ']',
	'：': ':', '；': ';',
	'，': ',', '。': '.',
	'！': '!', '？': '?',
	'“': '"', '”': '"',
	'‘': '\'', '’': '\'',
	'、': ',', '　': ' ',
	'～': '~', '％': '%', '＋': '+', '－': '-', '＝': '=', '＠': '@',
}

var (
	openParenRe  = regexp.MustCompile(`\s*\(\s*`)
	closeParenRe = regexp.MustCompile(`\s*\)\s*`)
)

// stripNewlines 去掉 \r 与 \n
func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// CleanComment 所见文本的完整清洗：去换行、全角转半角、收紧括号两侧空白
func CleanComment(s string) string {
	s = stripNewlines(s)
	s = strings.Map(func(r rune) rune {
		if mapped, ok := fullWidthMap[r]; ok {
			return mapped
		}
		return r
	}, s)
	s = openParenRe.ReplaceAllString(s, "(")
	s = closeParenRe.ReplaceAllString(s, ")")
	return s
}

// CleanLine 摘要与分组字段只去换行。
// 不做全角转换：日文/简中缺省文案以「。」结尾，转换会破坏缺省文案识别与幂等性。
func CleanLine(s string) string {
	return stripNewlines(s)
}

// fillDefault 清洗后为空则填入缺省文案
func fillDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Normalize 整表清洗：
//   - 四种语言的所见字段做完整清洗
//   - 摘要/分组字段去换行，空值按语言填缺省文案
//   - GroupNo 为 0（未分类）重排为 record 内最大值 +1，保证排序在最后
func Normalize(rows []model.Row, defaults langu.Table) []model.Row {
	out := make([]model.Row, len(rows))

	maxGroupNo := map[string]int{}
	for _, r := range rows {
		if r.GroupNo > maxGroupNo[r.RecordID] {
			maxGroupNo[r.RecordID] = r.GroupNo
		}
	}

	for i, r := range rows {
		r.Comment = CleanComment(r.Comment)
		r.ENNameComment = CleanComment(r.ENNameComment)
		r.JPNameComment = CleanComment(r.JPNameComment)
		r.SCNameComment = CleanComment(r.SCNameComment)

		r.TCNameSummary = fillDefault(CleanLine(r.TCNameSummary), defaults["1"].Summary)
		r.ENNameSummary = fillDefault(CleanLine(r.ENNameSummary), defaults["2"].Summary)
		r.JPNameSummary = fillDefault(CleanLine(r.JPNameSummary), defaults["3"].Summary)
		r.SCNameSummary = fillDefault(CleanLine(r.SCNameSummary), defaults["4"].Summary)

		r.TCNameGroup = fillDefault(CleanLine(r.TCNameGroup), defaults["1"].Group)
		r.ENNameGroup = fillDefault(CleanLine(r.ENNameGroup), defaults["2"].Group)
		r.JPNameGroup = fillDefault(CleanLine(r.JPNameGroup), defaults["3"].Group)
		r.SCNameGroup = fillDefault(CleanLine(r.SCNameGroup), defaults["4"].Group)

		if r.GroupNo == 0 {
			r.GroupNo = maxGroupNo[r.RecordID] + 1
		}

		out[i] = r
	}
	return out
}

// uniqueKey 去重键：同一 record 下相同项目且四种语言摘要都一致的行视为重复
type uniqueKey struct {
	ItemCode  string
	RecordID  string
	LangNo    string
	OrgID     string
	TCSummary string
	ENSummary string
	JPSummary string
	SCSummary string
}

// Unique 按去重键移除重复行，保留首次出现，顺序稳定
func Unique(rows []model.Row) []model.Row {
	seen := make(map[uniqueKey]struct{}, len(rows))
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		k := uniqueKey{
			ItemCode:  r.ItemCode,
			RecordID:  r.RecordID,
			LangNo:    r.LangNo,
			OrgID:     r.OrgID,
			TCSummary: r.TCNameSummary,
			ENSummary: r.ENNameSummary,
			JPSummary: r.JPNameSummary,
			SCSummary: r.SCNameSummary,
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Sort 按 (RecordID, GroupNo, 繁中项目名) 稳定排序，
// 固定下游分组遍历的确定性顺序
func Sort(rows []model.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.RecordID != b.RecordID {
			return a.RecordID < b.RecordID
		}
		if a.GroupNo != b.GroupNo {
			return a.GroupNo < b.GroupNo
		}
		return a.TCNameItem < b.TCNameItem
	})
}
