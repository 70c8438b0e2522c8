package report

import (
	"strings"
	"testing"

	"github.com/iWorld-y/report_forge/pkg/model"
)

const defTC = "本項無補充說明"

func row(group, code, name, comment, summary string) model.ProjectedRow {
	return model.ProjectedRow{
		Group: group, ItemCode: code, ItemName: name,
		Comment: comment, Summary: summary,
	}
}

func TestCompileRealSummaryMerge(t *testing.T) {
	rows := []model.ProjectedRow{
		row("健檢分類", "A1", "項目A", "發現異常", "建議追蹤"),
		row("健檢分類", "A2", "項目B", "發現異常", "建議追蹤"),
	}
	rewritten := map[string]string{"建議追蹤": "[LLM_OUTPUT]建議追蹤"}

	got := Compile(rows, defTC, rewritten)
	want := strings.Join([]string{
		"健檢分類",
		"    項目A、項目B",
		"        發現異常",
		"            [LLM_OUTPUT]建議追蹤\n",
	}, "\n")
	if got != want {
		t.Errorf("Compile() =\n%q\nwant\n%q", got, want)
	}
}

func TestCompileRealSummaryMergesComments(t *testing.T) {
	// 同一真实摘要跨多条所见：仅一条摘要行，所见合并为一行
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見一", "建議追蹤"),
		row("分類", "A2", "項目B", "所見二", "建議追蹤"),
	}

	got := Compile(rows, defTC, nil)

	if n := strings.Count(got, "建議追蹤"); n != 1 {
		t.Errorf("摘要行应只出现一次, got %d\n%s", n, got)
	}
	if !strings.Contains(got, "        所見一、所見二") {
		t.Errorf("所见应合并为一行:\n%s", got)
	}
}

func TestCompileDefaultSummaryIsolation(t *testing.T) {
	// 缺省摘要不得跨所见合并：两条所见各自成块、各出一条摘要行
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見一", defTC),
		row("分類", "A1", "項目A", "所見二", defTC),
	}

	got := Compile(rows, defTC, nil)

	if n := strings.Count(got, "            "+defTC); n != 2 {
		t.Errorf("缺省摘要行应出现两次, got %d\n%s", n, got)
	}
	if !strings.Contains(got, "        所見一") || !strings.Contains(got, "        所見二") {
		t.Errorf("两条所见应各自独立成行:\n%s", got)
	}
}

func TestCompileSharedItemHeader(t *testing.T) {
	// 相邻 block 项目元组一致时共用一条项目行
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見一", defTC),
		row("分類", "A1", "項目A", "所見二", defTC),
	}

	got := Compile(rows, defTC, nil)
	if n := strings.Count(got, "    項目A\n"); n != 1 {
		t.Errorf("项目行应只出现一次, got %d\n%s", n, got)
	}
}

func TestCompileItemTupleRegrouping(t *testing.T) {
	// 项目元组相同但中间插入了其他元组的 block，重排后应相邻
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見一", defTC),
		row("分類", "B1", "項目B", "所見二", defTC),
		row("分類", "A1", "項目A", "所見三", defTC),
	}

	got := Compile(rows, defTC, nil)
	lines := strings.Split(got, "\n")

	var itemLines []int
	for i, l := range lines {
		if strings.HasPrefix(l, "    ") && !strings.HasPrefix(l, "        ") {
			itemLines = append(itemLines, i)
		}
	}
	if len(itemLines) != 2 {
		t.Fatalf("应只有两条项目行（項目A 的两个 block 共享一条）, got %d:\n%s", len(itemLines), got)
	}
	if strings.TrimSpace(lines[itemLines[0]]) != "項目A" {
		t.Errorf("首见项目集合应保持在前:\n%s", got)
	}
	if !strings.Contains(got, "        所見一") || !strings.Contains(got, "        所見三") {
		t.Errorf("項目A 的两条所见都应保留:\n%s", got)
	}
}

func TestCompileGroupOrderFollowsRows(t *testing.T) {
	rows := []model.ProjectedRow{
		row("分類二", "A1", "項目A", "所見", "建議追蹤"),
		row("其他", "B1", "項目B", "所見", "建議追蹤"),
	}

	got := Compile(rows, defTC, nil)
	if strings.Index(got, "分類二") > strings.Index(got, "其他") {
		t.Errorf("分组应按行序输出:\n%s", got)
	}
}

func TestCompileMissingRewriteFallsBack(t *testing.T) {
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見", "建議追蹤"),
	}

	got := Compile(rows, defTC, map[string]string{})
	if !strings.Contains(got, "            建議追蹤") {
		t.Errorf("查不到改写结果时应输出原文:\n%s", got)
	}
}

func TestCompileEmptySummarySuppressed(t *testing.T) {
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見", ""),
	}

	got := Compile(rows, defTC, nil)
	if strings.Contains(got, "            ") {
		t.Errorf("空摘要不应产生摘要行:\n%s", got)
	}
	if !strings.Contains(got, "        所見") {
		t.Errorf("block 本身不应被丢弃:\n%s", got)
	}
}

func TestCompileDedupItemByCode(t *testing.T) {
	// 同一项目代码出现多次只保留首个显示名
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見一", "建議追蹤"),
		row("分類", "A1", "項目A", "所見二", "建議追蹤"),
	}

	got := Compile(rows, defTC, nil)
	if !strings.Contains(got, "    項目A\n") {
		t.Errorf("项目应按代码去重:\n%s", got)
	}
	if strings.Contains(got, "項目A、項目A") {
		t.Errorf("项目重复未去除:\n%s", got)
	}
}

func TestCompileSingleBlockCollapse(t *testing.T) {
	// 整个 record 同摘要同项目集合时收敛为单一 block
	rows := []model.ProjectedRow{
		row("分類", "A1", "項目A", "所見一", "建議追蹤"),
		row("分類", "A1", "項目A", "所見二", "建議追蹤"),
	}

	got := Compile(rows, defTC, nil)
	want := strings.Join([]string{
		"分類",
		"    項目A",
		"        所見一、所見二",
		"            建議追蹤\n",
	}, "\n")
	if got != want {
		t.Errorf("Compile() =\n%q\nwant\n%q", got, want)
	}
}
