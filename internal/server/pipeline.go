package server

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/report_forge/internal/biz"
	"github.com/iWorld-y/report_forge/internal/conf"
	"github.com/iWorld-y/report_forge/internal/data"
	"github.com/iWorld-y/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/pkg/langu"
	pkgLogger "github.com/iWorld-y/report_forge/pkg/logger"
)

// NewPipeline 组装报告流水线：配置转换、日志、LLM、参照表数据源与业务逻辑
func NewPipeline(c *conf.Pipeline, logger log.Logger) (*biz.PipelineUseCase, func(), error) {
	helper := log.NewHelper(logger)

	cfg := toPipelineConfig(c)
	cfg.ApplyEnv()

	if err := pkgLogger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("初始化流水线日志失败: %v", err)
		_ = pkgLogger.Init("info", "")
	}

	// 启动即校验各语言列集合，配置错误尽早暴露
	if err := langu.Validate(); err != nil {
		return nil, nil, err
	}

	var cm einomodel.BaseChatModel
	if cfg.LLM.Configured() {
		m, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		cm = m
		helper.Infof("LLM 已就绪: %s", cfg.LLM.Model)
	} else {
		helper.Info("未配置 LLM，摘要改写将使用 mock 输出")
	}

	d, cleanup, err := data.NewData(cfg.Mongo, logger)
	if err != nil {
		return nil, nil, err
	}

	repo := data.NewEnrichRepo(d, logger)
	uc := biz.NewPipelineUseCase(repo, cm, cfg, logger)

	return uc, cleanup, nil
}

// toPipelineConfig 把 internal/conf.Pipeline 转换为 pkg/config.Config
func toPipelineConfig(c *conf.Pipeline) *config.Config {
	cfg := &config.Config{}
	if c == nil {
		return cfg
	}

	if c.Llm != nil {
		cfg.LLM = config.LLMConfig{
			BaseURL: c.Llm.BaseUrl,
			APIKey:  c.Llm.ApiKey,
			Model:   c.Llm.Model,
		}
	}
	if c.Mongo != nil {
		cfg.Mongo = config.MongoConfig{
			URI:             c.Mongo.Uri,
			MainDB:          c.Mongo.MainDb,
			AuxDB:           c.Mongo.AuxDb,
			ColItemMeta:     c.Mongo.ColItemMeta,
			ColItemGroupMap: c.Mongo.ColItemGroupMap,
			ColDiag:         c.Mongo.ColDiag,
			ColSummary:      c.Mongo.ColSummary,
		}
	}
	if len(c.Languages) > 0 {
		cfg.Languages = make(map[string]langu.Defaults, len(c.Languages))
		for no, l := range c.Languages {
			if l == nil {
				continue
			}
			cfg.Languages[no] = langu.Defaults{
				Summary: l.SummaryDefault,
				Group:   l.GroupDefault,
			}
		}
	}
	if c.Log != nil {
		cfg.Log = config.LogConfig{Level: c.Log.Level, File: c.Log.File}
	}
	if c.Concurrency != nil {
		cfg.Concurrency = config.ConcurrencyConfig{
			Workers: int(c.Concurrency.Workers),
			QPS:     int(c.Concurrency.Qps),
			RPM:     int(c.Concurrency.Rpm),
		}
	}
	if c.Output != nil {
		cfg.Output = config.OutputConfig{
			PreprocessedDir: c.Output.PreprocessedDir,
			ReportDir:       c.Output.ReportDir,
		}
	}
	return cfg
}
