package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/datasource"
)

// sourceSummary 是列表与上传响应里的数据源摘要，
// 全量行数据只在按 id 取单个数据源时返回。
type sourceSummary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Kind     datasource.Kind `json:"kind"`
	Columns  []string      `json:"columns"`
	RowCount int           `json:"rowCount"`
	Preview  []binding.Row `json:"preview"`
}

func summarize(src *datasource.Source) sourceSummary {
	return sourceSummary{
		ID:       src.ID,
		Name:     src.Name,
		Kind:     src.Kind,
		Columns:  src.Columns,
		RowCount: src.RowCount(),
		Preview:  src.Preview(),
	}
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.sources.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]sourceSummary, 0, len(list))
	for _, src := range list {
		out = append(out, summarize(src))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateSource 直接以 JSON 请求体建数据源。
func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name    string        `json:"name"`
		Columns []string      `json:"columns"`
		Rows    []binding.Row `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("解析请求体失败: %w", err))
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("数据源名不能为空"))
		return
	}
	src := datasource.New(in.Name, datasource.KindJSON, in.Columns, in.Rows)
	if err := s.sources.Save(r.Context(), src); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(src))
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.sources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.sources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "数据源已删除"})
}

// handleUploadSource 接收 CSV/JSON 文件并解析为数据源，
// 按扩展名选择解析器。
func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("读取上传文件失败: %w", err))
		return
	}
	defer file.Close()

	var (
		columns []string
		rows    []binding.Row
		kind    datasource.Kind
	)
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		kind = datasource.KindCSV
		columns, rows, err = datasource.ParseCSV(file)
	case ".json":
		kind = datasource.KindJSON
		var data []byte
		data, err = io.ReadAll(file)
		if err == nil {
			columns, rows, err = datasource.ParseJSON(data)
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("不支持的文件格式: %s", header.Filename))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	src := datasource.New(header.Filename, kind, columns, rows)
	if err := s.sources.Save(r.Context(), src); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(src))
}

// handleFetchAPISource 从远程 JSON 接口拉取数据建数据源。
func (s *Server) handleFetchAPISource(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("解析请求体失败: %w", err))
		return
	}
	if in.URL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("接口地址不能为空"))
		return
	}
	columns, rows, err := datasource.FetchAPI(r.Context(), nil, in.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	name := in.Name
	if name == "" {
		name = in.URL
	}
	src := datasource.New(name, datasource.KindAPI, columns, rows)
	src.URL = in.URL
	if err := s.sources.Save(r.Context(), src); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(src))
}
