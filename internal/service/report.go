package service

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/report_forge/internal/biz"
	"github.com/iWorld-y/report_forge/pkg/model"
)

// ReportService 报告处理 HTTP 服务
type ReportService struct {
	uc  *biz.PipelineUseCase
	log *log.Helper
}

func NewReportService(uc *biz.PipelineUseCase, logger log.Logger) *ReportService {
	return &ReportService{uc: uc, log: log.NewHelper(logger)}
}

type reportEntry struct {
	Report string `json:"report"`
}

type processResponse struct {
	Rows []reportEntry `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleRoot 存活探测
func (s *ReportService) HandleRoot(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"message": "report pipeline is running"})
}

// HandleProcess 接收一条或一批处理请求，返回逐 record 的报告文本。
// 任一 record 失败则整批失败，只返回一条错误，不返回部分结果。
func (s *ReportService) HandleProcess(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		writeJSON(w, nethttp.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, nethttp.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	reqs, err := decodeRequests(body)
	if err != nil {
		writeJSON(w, nethttp.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rows, err := s.uc.Process(r.Context(), reqs)
	if err != nil {
		s.log.Errorf("处理失败: %v", err)
		writeJSON(w, nethttp.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := processResponse{Rows: make([]reportEntry, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, reportEntry{Report: row.Report})
	}
	writeJSON(w, nethttp.StatusOK, resp)
}

// decodeRequests 同时接受单个对象与对象列表
func decodeRequests(body []byte) ([]model.ProcessRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []model.ProcessRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}

	var req model.ProcessRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []model.ProcessRequest{req}, nil
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
