package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iWorld-y/report_forge/internal/biz"
	"github.com/iWorld-y/report_forge/pkg/model"
)

type enrichRepo struct {
	data *Data
	log  *log.Helper
}

// NewEnrichRepo 创建参照表补全仓库
func NewEnrichRepo(data *Data, logger log.Logger) biz.EnrichRepo {
	return &enrichRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// baseRow 请求展开后、补全前的一行（一条 finding）
type baseRow struct {
	recordID string
	orgID    string
	langNo   string
	itemCode string
	diagCode string
	comment  string
}

// itemMetaEntry 项目主档：多语言项目显示名
type itemMetaEntry struct {
	ItemCode string `bson:"ITEM_CODE"`
	OrgID    string `bson:"ORG_ID"`
	TCName   string `bson:"TCNAME"`
	ENName   string `bson:"ENNAME"`
	JPName   string `bson:"JPNAME"`
	SCName   string `bson:"SCNAME"`
}

// groupMapEntry 项目 -> 分组序号与多语言分组名
type groupMapEntry struct {
	ItemCode    string `bson:"ITEM_CODE"`
	GroupNo     int    `bson:"GROUPNO"`
	TCNameGroup string `bson:"TCNAME_GROUP"`
	ENNameGroup string `bson:"ENNAME_GROUP"`
	JPNameGroup string `bson:"JPNAME_GROUP"`
	SCNameGroup string `bson:"SCNAME_GROUP"`
}

// diagEntry 诊断代码 -> 摘要代码与非繁中所见文本
type diagEntry struct {
	DiagCode    string `bson:"DIAG_CODE"`
	SummaryCode string `bson:"SUMMARY_CODE"`
	ENName      string `bson:"ENNAME"`
	JPName      string `bson:"JPNAME"`
	SCName      string `bson:"SCNAME"`
}

// summaryEntry 摘要代码 -> 多语言摘要文本
type summaryEntry struct {
	SummaryCode string `bson:"SUMMARY_CODE"`
	TCName      string `bson:"TCNAME"`
	ENName      string `bson:"ENNAME"`
	JPName      string `bson:"JPNAME"`
	SCName      string `bson:"SCNAME"`
}

type itemKey struct {
	itemCode string
	orgID    string
}

// Enrich 展开请求并做参照表左连接。
// 查不到的键一律补空字符串，绝不因缺键报错；
// 所见为空的 finding 在这里就被剔除（无所见即无事实）。
func (r *enrichRepo) Enrich(ctx context.Context, reqs []model.ProcessRequest) ([]model.Row, error) {
	base := flatten(reqs)
	if len(base) == 0 {
		return nil, nil
	}

	itemCodes := uniqueField(base, func(b baseRow) string { return b.itemCode })
	diagCodes := uniqueField(base, func(b baseRow) string { return b.diagCode })

	var (
		items     []itemMetaEntry
		groups    []groupMapEntry
		diags     []diagEntry
		summaries []summaryEntry
		err       error
	)

	if r.data.client == nil {
		items, groups, diags, summaries = fallbackTables(base, itemCodes, diagCodes)
		r.log.Info("使用内置 fallback 参照表")
	} else {
		items, groups, diags, summaries, err = r.fetchTables(ctx, itemCodes)
		if err != nil {
			return nil, err
		}
	}

	itemIdx := make(map[itemKey]itemMetaEntry, len(items))
	for _, e := range items {
		itemIdx[itemKey{strings.TrimSpace(e.ItemCode), strings.TrimSpace(e.OrgID)}] = e
	}
	groupIdx := make(map[string]groupMapEntry, len(groups))
	for _, e := range groups {
		groupIdx[strings.TrimSpace(e.ItemCode)] = e
	}
	diagIdx := make(map[string]diagEntry, len(diags))
	for _, e := range diags {
		diagIdx[strings.TrimSpace(e.DiagCode)] = e
	}
	summaryIdx := make(map[string]summaryEntry, len(summaries))
	for _, e := range summaries {
		summaryIdx[strings.TrimSpace(e.SummaryCode)] = e
	}

	rows := make([]model.Row, 0, len(base))
	for _, b := range base {
		item := itemIdx[itemKey{b.itemCode, b.orgID}]
		group := groupIdx[b.itemCode]
		diag := diagIdx[b.diagCode]
		summary := summaryIdx[strings.TrimSpace(diag.SummaryCode)]

		rows = append(rows, model.Row{
			RecordID: b.recordID,
			OrgID:    b.orgID,
			LangNo:   b.langNo,
			DiagCode: b.diagCode,

			GroupNo:     group.GroupNo,
			TCNameGroup: group.TCNameGroup,
			ENNameGroup: group.ENNameGroup,
			JPNameGroup: group.JPNameGroup,
			SCNameGroup: group.SCNameGroup,

			ItemCode:   b.itemCode,
			TCNameItem: item.TCName,
			ENNameItem: item.ENName,
			JPNameItem: item.JPName,
			SCNameItem: item.SCName,

			Comment:       b.comment,
			ENNameComment: diag.ENName,
			JPNameComment: diag.JPName,
			SCNameComment: diag.SCName,

			TCNameSummary: summary.TCName,
			ENNameSummary: summary.ENName,
			JPNameSummary: summary.JPName,
			SCNameSummary: summary.SCName,
		})
	}
	return rows, nil
}

// flatten 把 record -> items -> findings 展开为行，剔除空所见
func flatten(reqs []model.ProcessRequest) []baseRow {
	var base []baseRow
	for _, req := range reqs {
		for _, item := range req.Items {
			for _, f := range item.Findings {
				comment := strings.TrimSpace(f.Comment)
				if comment == "" {
					continue
				}
				base = append(base, baseRow{
					recordID: req.RecordID,
					orgID:    strings.TrimSpace(req.OrgID),
					langNo:   req.LangNo,
					itemCode: strings.TrimSpace(item.ItemCode),
					diagCode: strings.TrimSpace(f.DiagCode),
					comment:  f.Comment,
				})
			}
		}
	}
	return base
}

func uniqueField(base []baseRow, get func(baseRow) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, b := range base {
		v := get(b)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// fetchTables 从 MongoDB 拉取四张参照表
func (r *enrichRepo) fetchTables(ctx context.Context, itemCodes []string) ([]itemMetaEntry, []groupMapEntry, []diagEntry, []summaryEntry, error) {
	cfg := r.data.cfg
	mainDB := r.data.client.Database(cfg.MainDB)
	auxDB := r.data.client.Database(cfg.AuxDB)

	var items []itemMetaEntry
	cur, err := mainDB.Collection(cfg.ColItemMeta).Find(ctx,
		bson.M{"ITEM_CODE": bson.M{"$in": itemCodes}},
		options.Find().SetProjection(bson.M{
			"ITEM_CODE": 1, "TCNAME": 1, "SCNAME": 1, "JPNAME": 1, "ENNAME": 1, "ORG_ID": 1, "_id": 0,
		}))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("查询项目主档失败: %w", err)
	}
	if err := cur.All(ctx, &items); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("解析项目主档失败: %w", err)
	}

	var groups []groupMapEntry
	cur, err = auxDB.Collection(cfg.ColItemGroupMap).Find(ctx,
		bson.M{"ITEM_CODE": bson.M{"$in": itemCodes}},
		options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("查询项目分组表失败: %w", err)
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("解析项目分组表失败: %w", err)
	}

	var diags []diagEntry
	cur, err = mainDB.Collection(cfg.ColDiag).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{
			"DIAG_CODE": 1, "SUMMARY_CODE": 1, "SCNAME": 1, "ENNAME": 1, "JPNAME": 1, "ORG_ID": 1, "_id": 0,
		}))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("查询诊断代码表失败: %w", err)
	}
	if err := cur.All(ctx, &diags); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("解析诊断代码表失败: %w", err)
	}

	var summaries []summaryEntry
	cur, err = auxDB.Collection(cfg.ColSummary).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{
			"SUMMARY_CODE": 1, "TCNAME": 1, "SCNAME": 1, "JPNAME": 1, "ENNAME": 1, "ORG_ID": 1, "_id": 0,
		}))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("查询摘要代码表失败: %w", err)
	}
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("解析摘要代码表失败: %w", err)
	}

	return items, groups, diags, summaries, nil
}

// fallbackTables 离线演示用参照表：为每个出现过的键合成一条自洽的记录，
// 下游永远不会因为缺键拿到空指针或报错
func fallbackTables(base []baseRow, itemCodes, diagCodes []string) ([]itemMetaEntry, []groupMapEntry, []diagEntry, []summaryEntry) {
	orgID := ""
	if len(base) > 0 {
		orgID = base[0].orgID
	}

	items := make([]itemMetaEntry, 0, len(itemCodes))
	groups := make([]groupMapEntry, 0, len(itemCodes))
	for _, code := range itemCodes {
		items = append(items, itemMetaEntry{
			ItemCode: code,
			OrgID:    orgID,
			TCName:   "項目 " + code,
			ENName:   "Item " + code,
			JPName:   "項目 " + code,
			SCName:   "项目 " + code,
		})
		groups = append(groups, groupMapEntry{
			ItemCode:    code,
			GroupNo:     1,
			TCNameGroup: "範例分類",
			ENNameGroup: "Sample Group",
			JPNameGroup: "サンプル分類",
			SCNameGroup: "示例分类",
		})
	}

	diags := make([]diagEntry, 0, len(diagCodes))
	summaries := make([]summaryEntry, 0, len(diagCodes))
	for _, code := range diagCodes {
		diags = append(diags, diagEntry{DiagCode: code, SummaryCode: code})
		summaries = append(summaries, summaryEntry{SummaryCode: code})
	}

	return items, groups, diags, summaries
}
