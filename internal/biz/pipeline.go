package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/report_forge/pkg/audit"
	"github.com/iWorld-y/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/pkg/langu"
	"github.com/iWorld-y/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/pkg/preprocess"
	"github.com/iWorld-y/report_forge/pkg/report"
	"github.com/iWorld-y/report_forge/pkg/rewrite"

	einomodel "github.com/cloudwego/eino/components/model"
)

// EnrichRepo 参照表补全仓库接口
type EnrichRepo interface {
	// Enrich 把请求展开为 finding 行并补全多语言显示名
	Enrich(ctx context.Context, reqs []model.ProcessRequest) ([]model.Row, error)
}

// PipelineUseCase 报告流水线业务逻辑：补全 -> 预处理 -> 逐 record 编排
type PipelineUseCase struct {
	repo     EnrichRepo
	cm       einomodel.BaseChatModel // nil 表示改写走 mock
	defaults langu.Table
	limiter  *rate.Limiter
	workers  int
	output   config.OutputConfig
	log      *log.Helper
}

// NewPipelineUseCase 创建流水线业务逻辑实例
func NewPipelineUseCase(repo EnrichRepo, cm einomodel.BaseChatModel, cfg *config.Config, logger log.Logger) *PipelineUseCase {
	var limiter *rate.Limiter
	if cfg.Concurrency.RPM > 0 {
		burst := cfg.Concurrency.QPS
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.Concurrency.RPM)/60.0), burst)
	}

	return &PipelineUseCase{
		repo:     repo,
		cm:       cm,
		defaults: langu.BuiltinDefaults().Merge(cfg.Languages),
		limiter:  limiter,
		workers:  cfg.Concurrency.Workers,
		output:   cfg.Output,
		log:      log.NewHelper(logger),
	}
}

// Process 处理一批请求，按请求顺序返回每个 record 的报告。
// 任一 record 无法定位或语言非法都会让整批失败（不返回部分结果）。
func (uc *PipelineUseCase) Process(ctx context.Context, reqs []model.ProcessRequest) ([]model.ReportRow, error) {
	rows, err := uc.repo.Enrich(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("参照表补全失败: %w", err)
	}

	rows = preprocess.Normalize(rows, uc.defaults)
	rows = preprocess.Unique(rows)
	preprocess.Sort(rows)
	uc.log.Infof("预处理完成，共 %d 行", len(rows))

	if uc.output.PreprocessedDir != "" {
		if path, err := audit.WritePreprocessed(uc.output.PreprocessedDir, rows); err != nil {
			uc.log.Warnf("预处理表落盘失败: %v", err)
		} else {
			uc.log.Infof("预处理表已写入 %s", path)
		}
	}

	byRecord := make(map[string][]model.Row)
	for _, r := range rows {
		byRecord[r.RecordID] = append(byRecord[r.RecordID], r)
	}

	out := make([]model.ReportRow, 0, len(reqs))
	for _, req := range reqs {
		recRows := byRecord[req.RecordID]
		if len(recRows) == 0 {
			return nil, fmt.Errorf("record %q 在补全后的主表中不存在", req.RecordID)
		}

		// LANG_NO 以该 record 首行为准
		langNo := strings.TrimSpace(recRows[0].LangNo)
		projected, err := langu.Project(langNo, recRows)
		if err != nil {
			return nil, fmt.Errorf("record %q 投影失败: %w", req.RecordID, err)
		}

		text, err := uc.compileRecord(ctx, langNo, projected)
		if err != nil {
			return nil, fmt.Errorf("record %q 编排失败: %w", req.RecordID, err)
		}

		reqJSON, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("record %q 请求序列化失败: %w", req.RecordID, err)
		}

		out = append(out, model.ReportRow{
			RecordID: req.RecordID,
			Report:   text,
			Request:  string(reqJSON),
		})
	}

	if uc.output.ReportDir != "" {
		if path, err := audit.WriteReports(uc.output.ReportDir, out); err != nil {
			uc.log.Warnf("报告产出表落盘失败: %v", err)
		} else {
			uc.log.Infof("报告产出表已写入 %s", path)
		}
	}

	return out, nil
}

// compileRecord 收集该 record 的去重摘要、批量改写后编排为层级文本
func (uc *PipelineUseCase) compileRecord(ctx context.Context, langNo string, projected []model.ProjectedRow) (string, error) {
	var summaries []string
	seen := map[string]struct{}{}
	for _, p := range projected {
		s := strings.TrimSpace(p.Summary)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		summaries = append(summaries, s)
	}

	rw, err := rewrite.NewRewriter(langNo, uc.cm, uc.defaults, rewrite.Options{
		Limiter: uc.limiter,
		Workers: uc.workers,
	})
	if err != nil {
		return "", err
	}
	rewritten := rw.RewriteBatch(ctx, summaries)

	return report.Compile(projected, uc.defaults[langNo].Summary, rewritten), nil
}
