package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/cache"
	"github.com/makers-cave/BatchArtPro/template"
)

// templateInput 是创建/更新模板的请求体，字段缺省时保留原值。
type templateInput struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Settings    *template.Settings  `json:"settings"`
	Elements    *[]template.Element `json:"elements"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.templates.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*template.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in templateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("解析请求体失败: %w", err))
		return
	}
	name, desc := "", ""
	if in.Name != nil {
		name = *in.Name
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("模板名不能为空"))
		return
	}
	if in.Description != nil {
		desc = *in.Description
	}
	tpl := template.New(name, desc)
	if in.Settings != nil {
		tpl.Settings = *in.Settings
	}
	if in.Elements != nil {
		tpl.Elements = *in.Elements
	}
	if err := template.Validate(tpl); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.templates.Save(r.Context(), tpl); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var in templateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("解析请求体失败: %w", err))
		return
	}
	if in.Name != nil {
		tpl.Name = *in.Name
	}
	if in.Description != nil {
		tpl.Description = *in.Description
	}
	if in.Settings != nil {
		tpl.Settings = *in.Settings
	}
	if in.Elements != nil {
		tpl.Elements = *in.Elements
	}
	tpl.UpdatedAt = time.Now().UTC()
	if err := template.Validate(tpl); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.templates.Save(r.Context(), tpl); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "模板已删除"})
}

// handleDownloadTemplate 把模板导出为 JSON 附件。
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	data, err := template.Encode(tpl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", tpl.Name))
	w.Write(data)
}

// handleImportTemplate 从上传的 JSON 导入模板，分配新 id 与时间戳。
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("读取上传文件失败: %w", err))
		return
	}
	defer file.Close()

	tpl, err := template.DecodeReader(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now := time.Now().UTC()
	tpl.ID = uuid.NewString()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	if err := s.templates.Save(r.Context(), tpl); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// handlePreviewTemplate 渲染模板预览 PNG。可选参数 datasourceId
// 与 row 指定预览用的数据行；命中缓存时直接回缓存字节。
func (s *Server) handlePreviewTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	row := binding.Row{}
	fingerprint := ""
	if srcID := r.URL.Query().Get("datasourceId"); srcID != "" {
		src, err := s.sources.Get(r.Context(), srcID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		idx, _ := strconv.Atoi(r.URL.Query().Get("row"))
		if idx < 0 || idx >= src.RowCount() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("行号 %d 超出范围", idx))
			return
		}
		row = src.Rows[idx]
		fingerprint = fmt.Sprintf("%s:%d", srcID, idx)
	}

	key := cache.Key(tpl.ID, tpl.UpdatedAt, fingerprint)
	if data, ok := s.previews.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
		return
	}

	data, err := s.engine.PNG(tpl, row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.previews.Set(r.Context(), key, data)
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}
