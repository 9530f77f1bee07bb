package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/exporter"
)

// exportRequest 指定导出的模板、数据源与格式。rowIndices 为空时
// 导出全部行；不指定数据源时按单张空行导出。
type exportRequest struct {
	TemplateID   string `json:"templateId"`
	DataSourceID string `json:"dataSourceId"`
	Format       string `json:"format"`
	RowIndices   []int  `json:"rowIndices"`
}

// handleExport 执行批量导出并以附件返回产物。
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("解析请求体失败: %w", err))
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tpl, err := s.templates.Get(r.Context(), req.TemplateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rows := []binding.Row{{}}
	if req.DataSourceID != "" {
		src, err := s.sources.Get(r.Context(), req.DataSourceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if len(req.RowIndices) > 0 {
			rows = rows[:0]
			for _, i := range req.RowIndices {
				if i < 0 || i >= src.RowCount() {
					writeError(w, http.StatusBadRequest, fmt.Errorf("行号 %d 超出范围", i))
					return
				}
				rows = append(rows, src.Rows[i])
			}
		} else if src.RowCount() > 0 {
			rows = src.Rows
		}
	}

	artifact, err := s.exporter.Export(r.Context(), tpl, rows, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", artifact.Filename))
	w.Header().Set("X-Row-Count", fmt.Sprintf("%d", artifact.Rows))
	w.Write(artifact.Data)
}
