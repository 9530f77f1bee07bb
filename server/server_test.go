package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/render"
	"github.com/makers-cave/BatchArtPro/store"
	"github.com/makers-cave/BatchArtPro/template"
)

// newTestRouter 组装内存存储加真实渲染引擎的测试服务。
func newTestRouter() http.Handler {
	engine := render.NewEngine(render.Options{})
	s := New(store.NewMemoryTemplates(), store.NewMemorySources(), engine, nil)
	return s.Router()
}

// doJSON 发 JSON 请求并返回响应记录。
func doJSON(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// createTemplate 通过接口建一个含矩形的小模板并返回其 id。
func createTemplate(t *testing.T, h http.Handler, name string) string {
	t.Helper()
	rect := template.NewElement(template.TypeRectangle)
	rect.X, rect.Y, rect.Width, rect.Height = 10, 10, 60, 40
	settings := template.DefaultSettings()
	settings.Width, settings.Height = 120, 90

	w := doJSON(h, http.MethodPost, "/api/templates/", map[string]any{
		"name":     name,
		"settings": settings,
		"elements": []template.Element{rect},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("建模板失败: %d %s", w.Code, w.Body.String())
	}
	var tpl template.Template
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	return tpl.ID
}

// uploadFile 以 multipart 形式上传文件。
func uploadFile(t *testing.T, h http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("构造上传体失败: %v", err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestHealth 验证健康检查。
func TestHealth(t *testing.T) {
	h := newTestRouter()
	w := doJSON(h, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("健康检查失败: %d %s", w.Code, w.Body.String())
	}
}

// TestTemplateCRUD 覆盖模板接口的增查改删与 404 映射。
func TestTemplateCRUD(t *testing.T) {
	h := newTestRouter()
	id := createTemplate(t, h, "促销海报")

	w := doJSON(h, http.MethodGet, "/api/templates/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("读取失败: %d", w.Code)
	}
	var tpl template.Template
	json.Unmarshal(w.Body.Bytes(), &tpl)
	if tpl.Name != "促销海报" || len(tpl.Elements) != 1 {
		t.Fatalf("模板内容错误: %+v", tpl)
	}

	w = doJSON(h, http.MethodPut, "/api/templates/"+id, map[string]any{"name": "改名后"})
	if w.Code != http.StatusOK {
		t.Fatalf("更新失败: %d %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &tpl)
	if tpl.Name != "改名后" || len(tpl.Elements) != 1 {
		t.Fatalf("部分更新应保留未指定字段: %+v", tpl)
	}

	w = doJSON(h, http.MethodGet, "/api/templates/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "改名后") {
		t.Fatalf("列表缺少模板: %s", w.Body.String())
	}

	w = doJSON(h, http.MethodDelete, "/api/templates/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("删除失败: %d", w.Code)
	}
	w = doJSON(h, http.MethodGet, "/api/templates/"+id, nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "detail") {
		t.Fatalf("删除后应 404: %d %s", w.Code, w.Body.String())
	}
}

// TestCreateTemplateValidation 验证请求体校验。
func TestCreateTemplateValidation(t *testing.T) {
	h := newTestRouter()
	if w := doJSON(h, http.MethodPost, "/api/templates/", map[string]any{"description": "无名"}); w.Code != http.StatusBadRequest {
		t.Fatalf("缺名称应 400: %d", w.Code)
	}
}

// TestCreateTemplateElementDefaults 验证创建请求里缺省的元素
// 可选字段取默认值而不是 Go 零值。
func TestCreateTemplateElementDefaults(t *testing.T) {
	h := newTestRouter()
	w := doJSON(h, http.MethodPost, "/api/templates/", map[string]any{
		"name": "默认值",
		"elements": []map[string]any{
			{"id": "a", "type": "rectangle", "width": 40, "height": 30},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("建模板失败: %d %s", w.Code, w.Body.String())
	}
	var tpl template.Template
	json.Unmarshal(w.Body.Bytes(), &tpl)
	if len(tpl.Elements) != 1 {
		t.Fatalf("元素数量错误: %d", len(tpl.Elements))
	}
	if !tpl.Elements[0].Visible || tpl.Elements[0].Style.Opacity != 1 {
		t.Fatalf("缺省字段应默认可见且不透明: %+v", tpl.Elements[0])
	}
}

// TestTemplateImportDownload 验证 JSON 导入导出往返。
func TestTemplateImportDownload(t *testing.T) {
	h := newTestRouter()
	tpl := template.New("导入件", "")
	tpl.Settings.Width, tpl.Settings.Height = 100, 80
	data, err := template.Encode(tpl)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	w := uploadFile(t, h, "/api/templates/import", "tpl.json", data)
	if w.Code != http.StatusOK {
		t.Fatalf("导入失败: %d %s", w.Code, w.Body.String())
	}
	var imported template.Template
	json.Unmarshal(w.Body.Bytes(), &imported)
	if imported.ID == tpl.ID || imported.ID == "" {
		t.Fatalf("导入应分配新 id: %q", imported.ID)
	}

	w = doJSON(h, http.MethodGet, "/api/templates/"+imported.ID+"/download", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("下载失败: %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("下载应是附件: %q", cd)
	}
	if _, err := template.Decode(w.Body.Bytes()); err != nil {
		t.Fatalf("下载内容应可重新解码: %v", err)
	}
}

// TestUploadCSVSource 验证 CSV 上传与摘要响应。
func TestUploadCSVSource(t *testing.T) {
	h := newTestRouter()
	csv := "name,price\n甲,19.9\n乙,29.9\n"
	w := uploadFile(t, h, "/api/datasources/upload", "rows.csv", []byte(csv))
	if w.Code != http.StatusOK {
		t.Fatalf("上传失败: %d %s", w.Code, w.Body.String())
	}
	var sum struct {
		ID       string   `json:"id"`
		Kind     string   `json:"kind"`
		Columns  []string `json:"columns"`
		RowCount int      `json:"rowCount"`
	}
	json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.Kind != "csv" || sum.RowCount != 2 || len(sum.Columns) != 2 {
		t.Fatalf("摘要错误: %+v", sum)
	}

	// 全量行只在按 id 取时返回
	w = doJSON(h, http.MethodGet, "/api/datasources/"+sum.ID, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "19.9") {
		t.Fatalf("按 id 取数据源失败: %d %s", w.Code, w.Body.String())
	}

	if w := uploadFile(t, h, "/api/datasources/upload", "rows.txt", []byte("x")); w.Code != http.StatusBadRequest {
		t.Fatalf("不支持的扩展名应 400: %d", w.Code)
	}
}

// TestPreviewEndpoint 验证预览渲染与行号越界。
func TestPreviewEndpoint(t *testing.T) {
	h := newTestRouter()
	id := createTemplate(t, h, "预览")

	w := doJSON(h, http.MethodGet, "/api/templates/"+id+"/preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("预览失败: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("预览应是 PNG: %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("预览内容不是 PNG 数据")
	}

	// 建只有一行的数据源再用越界行号预览
	w = doJSON(h, http.MethodPost, "/api/datasources/", map[string]any{
		"name":    "单行",
		"columns": []string{"n"},
		"rows":    []binding.Row{{"n": "1"}},
	})
	var sum struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &sum)

	w = doJSON(h, http.MethodGet, "/api/templates/"+id+"/preview?datasourceId="+sum.ID+"&row=5", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("越界行号应 400: %d", w.Code)
	}
}

// TestExportEndpoint 验证批量导出接口的产物与行数头。
func TestExportEndpoint(t *testing.T) {
	h := newTestRouter()
	id := createTemplate(t, h, "导出件")

	w := doJSON(h, http.MethodPost, "/api/datasources/", map[string]any{
		"name":    "两行",
		"columns": []string{"n"},
		"rows":    []binding.Row{{"n": "1"}, {"n": "2"}},
	})
	var sum struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &sum)

	w = doJSON(h, http.MethodPost, "/api/export", map[string]any{
		"templateId":   id,
		"dataSourceId": sum.ID,
		"format":       "png",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("导出失败: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("产物类型错误: %q", ct)
	}
	if rc := w.Header().Get("X-Row-Count"); rc != "2" {
		t.Fatalf("行数头错误: %q", rc)
	}

	// 行号子集
	w = doJSON(h, http.MethodPost, "/api/export", map[string]any{
		"templateId":   id,
		"dataSourceId": sum.ID,
		"format":       "pdf",
		"rowIndices":   []int{0},
	})
	if w.Code != http.StatusOK || w.Header().Get("X-Row-Count") != "1" {
		t.Fatalf("子集导出错误: %d %q", w.Code, w.Header().Get("X-Row-Count"))
	}

	if w := doJSON(h, http.MethodPost, "/api/export", map[string]any{"templateId": id, "format": "bmp"}); w.Code != http.StatusBadRequest {
		t.Fatalf("无效格式应 400: %d", w.Code)
	}
	if w := doJSON(h, http.MethodPost, "/api/export", map[string]any{"templateId": "missing", "format": "png"}); w.Code != http.StatusNotFound {
		t.Fatalf("缺模板应 404: %d", w.Code)
	}
}
