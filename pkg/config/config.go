package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/report_forge/pkg/langu"
)

// Config 流水线配置结构体
type Config struct {
	LLM         LLMConfig                 `yaml:"llm"`
	Mongo       MongoConfig               `yaml:"mongo"`
	Languages   map[string]langu.Defaults `yaml:"languages"`
	Log         LogConfig                 `yaml:"log"`
	Concurrency ConcurrencyConfig         `yaml:"concurrency"`
	Output      OutputConfig              `yaml:"output"`
}

// LLMConfig 改写模型相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Configured 判断是否具备调用真实 LLM 的条件，否则进入 mock 模式
func (c LLMConfig) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// MongoConfig 参照表数据源配置，任一项缺失即回退到内置 fallback 数据
type MongoConfig struct {
	URI             string `yaml:"uri"`
	MainDB          string `yaml:"main_db"`
	AuxDB           string `yaml:"aux_db"`
	ColItemMeta     string `yaml:"col_item_meta"`
	ColItemGroupMap string `yaml:"col_item_group_map"`
	ColDiag         string `yaml:"col_diag"`
	ColSummary      string `yaml:"col_summary"`
}

// Configured 判断参照表数据源是否配置完整
func (c MongoConfig) Configured() bool {
	return c.URI != "" && c.MainDB != "" && c.AuxDB != "" &&
		c.ColItemMeta != "" && c.ColItemGroupMap != "" &&
		c.ColDiag != "" && c.ColSummary != ""
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
	QPS     int `yaml:"qps"`
	RPM     int `yaml:"rpm"`
}

// OutputConfig 审计用中间产物输出目录，留空则不落盘
type OutputConfig struct {
	PreprocessedDir string `yaml:"preprocessed_dir"`
	ReportDir       string `yaml:"report_dir"`
}

// LoadConfig 从指定路径加载配置并套用环境变量覆盖
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return &cfg, nil
}

// ApplyEnv 环境变量优先于配置文件，变量名沿用既有部署约定
func (c *Config) ApplyEnv() {
	overlay(&c.LLM.BaseURL, "AZURE_OPENAI_ENDPOINT")
	overlay(&c.LLM.APIKey, "AZURE_OPENAI_API_KEY")
	overlay(&c.LLM.Model, "AZURE_OPENAI_DEPLOYMENT")
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}

	overlay(&c.Mongo.URI, "MONGODB_URI")
	overlay(&c.Mongo.MainDB, "MONGODB_DB_MAIN")
	overlay(&c.Mongo.AuxDB, "MONGODB_DB_AUX")
	overlay(&c.Mongo.ColItemMeta, "MONGODB_COL_ITEM_META")
	overlay(&c.Mongo.ColItemGroupMap, "MONGODB_COL_ITEM_GROUP_MAP")
	overlay(&c.Mongo.ColDiag, "MONGODB_COL_DIAG")
	overlay(&c.Mongo.ColSummary, "MONGODB_COL_SUMMARY")
}

func overlay(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
