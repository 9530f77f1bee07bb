package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// TestParseCSV 验证表头解析、短行补齐与空行跳过。
func TestParseCSV(t *testing.T) {
	input := "name,price,sku\n商品A,19.9,A001\n商品B,29.9\n\n商品C,9.9,C003\n"
	columns, rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"name", "price", "sku"}) {
		t.Fatalf("列名错误: %v", columns)
	}
	if len(rows) != 3 {
		t.Fatalf("应解析出 3 行，实际 %d", len(rows))
	}
	if rows[0]["name"] != "商品A" || rows[0]["price"] != "19.9" {
		t.Fatalf("首行内容错误: %v", rows[0])
	}
	if rows[1]["sku"] != "" {
		t.Fatalf("短行缺失列应补空串，实际 %q", rows[1]["sku"])
	}
}

// TestParseCSVNoHeader 验证空输入报错。
func TestParseCSVNoHeader(t *testing.T) {
	if _, _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Fatalf("空 CSV 应报错")
	}
}

// TestParseJSONArray 验证顶层数组与列名并集。
func TestParseJSONArray(t *testing.T) {
	input := `[{"b":1,"a":"x"},{"a":"y","c":true}]`
	columns, rows, err := ParseJSON([]byte(input))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"a", "b", "c"}) {
		t.Fatalf("列名应是并集并按字典序: %v", columns)
	}
	if len(rows) != 2 || rows[0]["b"] != float64(1) {
		t.Fatalf("行内容错误: %v", rows)
	}
}

// TestParseJSONWrapped 验证常见包裹结构（data/rows/items）。
func TestParseJSONWrapped(t *testing.T) {
	input := `{"data":[{"name":"甲"},{"name":"乙"}]}`
	_, rows, err := ParseJSON([]byte(input))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(rows) != 2 || rows[1]["name"] != "乙" {
		t.Fatalf("包裹结构解析错误: %v", rows)
	}

	if _, _, err := ParseJSON([]byte(`{"foo": 1}`)); err == nil {
		t.Fatalf("找不到行数组时应报错")
	}
	if _, _, err := ParseJSON([]byte(`[1,2,3]`)); err == nil {
		t.Fatalf("非对象数组应报错")
	}
}

// TestPreview 验证预览行数封顶。
func TestPreview(t *testing.T) {
	src := New("s", KindJSON, []string{"n"}, nil)
	for i := 0; i < 8; i++ {
		src.Rows = append(src.Rows, map[string]any{"n": i})
	}
	if got := len(src.Preview()); got != PreviewRows {
		t.Fatalf("预览应截断到 %d 行，实际 %d", PreviewRows, got)
	}
	if src.RowCount() != 8 {
		t.Fatalf("行数应为 8")
	}
}

// TestFetchAPI 验证远程接口抓取与错误状态码处理。
func TestFetchAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"title":"第一条"}]}`))
	}))
	defer srv.Close()

	columns, rows, err := FetchAPI(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"title"}) || rows[0]["title"] != "第一条" {
		t.Fatalf("抓取结果错误: %v %v", columns, rows)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	if _, _, err := FetchAPI(context.Background(), bad.Client(), bad.URL); err == nil {
		t.Fatalf("非 200 响应应报错")
	}
}
