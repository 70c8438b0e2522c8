package model

// Row 补全参照表之后的一条检查所见记录（一条 finding 对应一行）
type Row struct {
	RecordID string
	OrgID    string
	LangNo   string
	DiagCode string

	// GroupNo 为分组展示序号，0 表示"未分类"，预处理阶段会重排到最后
	GroupNo     int
	TCNameGroup string
	ENNameGroup string
	JPNameGroup string
	SCNameGroup string

	ItemCode   string
	TCNameItem string
	ENNameItem string
	JPNameItem string
	SCNameItem string

	// Comment 为繁体中文原始所见，其余语言的所见由诊断代码表补出
	Comment       string
	ENNameComment string
	JPNameComment string
	SCNameComment string

	TCNameSummary string
	ENNameSummary string
	JPNameSummary string
	SCNameSummary string
}

// ProjectedRow 按语言投影后的行，列名统一为通用角色
type ProjectedRow struct {
	Group    string
	ItemCode string
	ItemName string
	Comment  string
	Summary  string
}

// ReportRow 单条报告产出：record_id + 编排后的报告文本 + 原始请求 JSON
type ReportRow struct {
	RecordID string
	Report   string
	Request  string
}

// Finding 单条检查所见
type Finding struct {
	Comment  string `json:"COMMENT"`
	DiagCode string `json:"DIAG_CODE"`
}

// RequestItem 请求中的单个检查项目
type RequestItem struct {
	ItemCode string    `json:"ITEM_CODE"`
	Findings []Finding `json:"FINDINGS"`
}

// ProcessRequest 一条报告处理请求（一个 record）
type ProcessRequest struct {
	RecordID string        `json:"RECORD_ID"`
	LangNo   string        `json:"LANG_NO"`
	OrgID    string        `json:"ORG_ID"`
	Items    []RequestItem `json:"ITEMS"`
}
