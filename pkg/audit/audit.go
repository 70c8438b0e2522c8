// Package audit 把预处理主表与报告产出表落盘为带时间戳的 CSV，
// 仅供事后稽核，流水线不会回读这些文件。
package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/iWorld-y/report_forge/pkg/model"
)

var preprocessedHeader = []string{
	"RECORD_ID", "ORG_ID", "LANG_NO", "DIAG_CODE",
	"GROUPNO", "TCNAME_GROUP", "ENNAME_GROUP", "JPNAME_GROUP", "SCNAME_GROUP",
	"ITEM_CODE", "TCNAME_ITEM", "ENNAME_ITEM", "JPNAME_ITEM", "SCNAME_ITEM",
	"COMMENT", "ENNAME_COMMENT", "JPNAME_COMMENT", "SCNAME_COMMENT",
	"TCNAME_SUMMARY", "ENNAME_SUMMARY", "JPNAME_SUMMARY", "SCNAME_SUMMARY",
}

// WritePreprocessed 写出预处理后的主表，返回文件路径
func WritePreprocessed(dir string, rows []model.Row) (string, error) {
	path := filepath.Join(dir, "data_processed_"+timestamp()+".csv")
	records := make([][]string, 0, len(rows)+1)
	records = append(records, preprocessedHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.RecordID, r.OrgID, r.LangNo, r.DiagCode,
			strconv.Itoa(r.GroupNo), r.TCNameGroup, r.ENNameGroup, r.JPNameGroup, r.SCNameGroup,
			r.ItemCode, r.TCNameItem, r.ENNameItem, r.JPNameItem, r.SCNameItem,
			r.Comment, r.ENNameComment, r.JPNameComment, r.SCNameComment,
			r.TCNameSummary, r.ENNameSummary, r.JPNameSummary, r.SCNameSummary,
		})
	}
	return path, writeCSV(dir, path, records)
}

// WriteReports 写出每个 record 的报告产出表，返回文件路径
func WriteReports(dir string, rows []model.ReportRow) (string, error) {
	path := filepath.Join(dir, "text_processed_"+timestamp()+".csv")
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{"record_id", "report", "request"})
	for _, r := range rows {
		records = append(records, []string{r.RecordID, r.Report, r.Request})
	}
	return path, writeCSV(dir, path, records)
}

func timestamp() string {
	return time.Now().Format("060102_1504")
}

func writeCSV(dir, path string, records [][]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}
