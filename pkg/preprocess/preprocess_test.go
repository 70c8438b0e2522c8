package preprocess

import (
	"reflect"
	"testing"

	"github.com/iWorld-y/report_forge/pkg/langu"
	"github.com/iWorld-y/report_forge/pkg/model"
)

func TestCleanComment(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"血壓：１２0（偏高）", "血壓:１２0(偏高)"},
		{"数值 ( 异常 ) ，请复查。", "数值(异常),请复查."},
		{"第一行\r\n第二行\n", "第一行第二行"},
		{"Ａ、Ｂ　！？～％＋－＝＠【】“”‘’", "Ａ,Ｂ !?~%+-=@[]\"\"''"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanComment(c.in); got != c.want {
			t.Errorf("CleanComment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanCommentIdempotent(t *testing.T) {
	inputs := []string{
		"数值 ( 异常 ) ，请复查。",
		"（左）（右）結果：正常",
		"plain ascii (ok)",
	}
	for _, in := range inputs {
		once := CleanComment(in)
		if twice := CleanComment(once); twice != once {
			t.Errorf("CleanComment 不幂等: %q -> %q -> %q", in, once, twice)
		}
	}
}

func defaultsForTest() langu.Table {
	return langu.BuiltinDefaults()
}

func TestNormalizeFillsDefaults(t *testing.T) {
	rows := []model.Row{{
		RecordID: "R1", LangNo: "1", GroupNo: 1,
		Comment: "所見\n",
	}}

	out := Normalize(rows, defaultsForTest())
	r := out[0]

	if r.TCNameSummary != "本項無補充說明" {
		t.Errorf("TCNameSummary = %q", r.TCNameSummary)
	}
	if r.ENNameSummary != "No additional information for this item." {
		t.Errorf("ENNameSummary = %q", r.ENNameSummary)
	}
	if r.JPNameSummary != "この項目に関する追加情報はありません。" {
		t.Errorf("JPNameSummary = %q", r.JPNameSummary)
	}
	if r.SCNameSummary != "本项无补充说明。" {
		t.Errorf("SCNameSummary = %q", r.SCNameSummary)
	}
	if r.TCNameGroup != "其他" || r.ENNameGroup != "Others" {
		t.Errorf("group defaults = %q / %q", r.TCNameGroup, r.ENNameGroup)
	}
	if r.Comment != "所見" {
		t.Errorf("Comment = %q", r.Comment)
	}
}

func TestNormalizeGroupZeroSentinel(t *testing.T) {
	rows := []model.Row{
		{RecordID: "R1", GroupNo: 0, TCNameGroup: "未分類"},
		{RecordID: "R1", GroupNo: 1, TCNameGroup: "分類一"},
		{RecordID: "R1", GroupNo: 2, TCNameGroup: "分類二"},
	}

	out := Normalize(rows, defaultsForTest())
	if out[0].GroupNo != 3 {
		t.Errorf("GroupNo 0 应重排为 3, got %d", out[0].GroupNo)
	}

	Sort(out)
	var order []int
	for _, r := range out {
		order = append(order, r.GroupNo)
	}
	if !reflect.DeepEqual(order, []int{1, 2, 3}) {
		t.Errorf("排序后的分组序号 = %v", order)
	}
}

func TestNormalizeGroupZeroPerRecord(t *testing.T) {
	rows := []model.Row{
		{RecordID: "R1", GroupNo: 0},
		{RecordID: "R1", GroupNo: 2},
		{RecordID: "R2", GroupNo: 0},
		{RecordID: "R2", GroupNo: 7},
	}

	out := Normalize(rows, defaultsForTest())
	if out[0].GroupNo != 3 {
		t.Errorf("R1 未分类应为 3, got %d", out[0].GroupNo)
	}
	if out[2].GroupNo != 8 {
		t.Errorf("R2 未分类应为 8, got %d", out[2].GroupNo)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	rows := []model.Row{
		{RecordID: "R1", GroupNo: 0, Comment: "数值 ( 异常 ) 。"},
		{RecordID: "R1", GroupNo: 1, Comment: "正常", TCNameSummary: "建議追蹤"},
	}

	once := Normalize(rows, defaultsForTest())
	twice := Normalize(once, defaultsForTest())
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize 不幂等:\n%v\n%v", once, twice)
	}
}

func TestUnique(t *testing.T) {
	a := model.Row{RecordID: "R1", LangNo: "1", OrgID: "O1", ItemCode: "A1", TCNameSummary: "s", Comment: "first"}
	dup := a
	dup.Comment = "second" // 所见不在去重键内
	b := a
	b.ItemCode = "A2"

	out := Unique([]model.Row{a, dup, b})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Comment != "first" {
		t.Errorf("应保留首次出现的行, got %q", out[0].Comment)
	}

	again := Unique(out)
	if !reflect.DeepEqual(out, again) {
		t.Errorf("Unique 不幂等")
	}
}

func TestSortStable(t *testing.T) {
	rows := []model.Row{
		{RecordID: "R2", GroupNo: 1, TCNameItem: "甲"},
		{RecordID: "R1", GroupNo: 2, TCNameItem: "乙"},
		{RecordID: "R1", GroupNo: 1, TCNameItem: "丙", Comment: "one"},
		{RecordID: "R1", GroupNo: 1, TCNameItem: "丙", Comment: "two"},
	}

	Sort(rows)

	if rows[0].TCNameItem != "丙" || rows[1].TCNameItem != "丙" {
		t.Fatalf("排序结果异常: %+v", rows)
	}
	// 同键保持原有相对顺序
	if rows[0].Comment != "one" || rows[1].Comment != "two" {
		t.Errorf("稳定性破坏: %q, %q", rows[0].Comment, rows[1].Comment)
	}
	if rows[2].GroupNo != 2 || rows[3].RecordID != "R2" {
		t.Errorf("排序顺序错误: %+v", rows)
	}
}
