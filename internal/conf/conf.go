package conf

type Bootstrap struct {
	Server   *Server
	Pipeline *Pipeline
}

type Server struct {
	Http *HTTP
}

type HTTP struct {
	Addr    string
	Timeout string
}

type Pipeline struct {
	Llm         *LLM                 `json:"llm"`
	Mongo       *Mongo               `json:"mongo"`
	Languages   map[string]*Language `json:"languages"`
	Log         *Log                 `json:"log"`
	Concurrency *Concurrency         `json:"concurrency"`
	Output      *Output              `json:"output"`
}

type LLM struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type Mongo struct {
	Uri             string `json:"uri"`
	MainDb          string `json:"main_db"`
	AuxDb           string `json:"aux_db"`
	ColItemMeta     string `json:"col_item_meta"`
	ColItemGroupMap string `json:"col_item_group_map"`
	ColDiag         string `json:"col_diag"`
	ColSummary      string `json:"col_summary"`
}

type Language struct {
	SummaryDefault string `json:"summary_default"`
	GroupDefault   string `json:"group_default"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Concurrency struct {
	Workers int32 `json:"workers"`
	Qps     int32 `json:"qps"`
	Rpm     int32 `json:"rpm"`
}

type Output struct {
	PreprocessedDir string `json:"preprocessed_dir"`
	ReportDir       string `json:"report_dir"`
}
