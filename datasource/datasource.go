// Package datasource 解析批量导出用的数据源：CSV、JSON 与远程接口。
// 解析结果统一成列名加行记录，行顺序与输入保持一致。
package datasource

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/makers-cave/BatchArtPro/binding"
)

// PreviewRows 是界面预览展示的行数。
const PreviewRows = 5

// Kind 是数据源的来源类型。
type Kind string

const (
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
	KindAPI  Kind = "api"
)

// Source 是一份解析完成的数据源。Rows 持有全量数据，
// 模板通过 id 引用数据源，不会把行数据内嵌进模板。
type Source struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Kind      Kind          `json:"kind"`
	URL       string        `json:"url,omitempty"`
	Columns   []string      `json:"columns"`
	Rows      []binding.Row `json:"rows"`
	CreatedAt time.Time     `json:"createdAt"`
}

// New 创建数据源并分配 id。
func New(name string, kind Kind, columns []string, rows []binding.Row) *Source {
	return &Source{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Columns:   columns,
		Rows:      rows,
		CreatedAt: time.Now().UTC(),
	}
}

// RowCount 返回数据行数。
func (s *Source) RowCount() int { return len(s.Rows) }

// Preview 返回前几行数据用于界面预览。
func (s *Source) Preview() []binding.Row {
	if len(s.Rows) <= PreviewRows {
		return s.Rows
	}
	return s.Rows[:PreviewRows]
}

// ParseCSV 解析带表头的 CSV。首行是列名，空行被跳过，
// 短行按空串补齐。
func ParseCSV(r io.Reader) ([]string, []binding.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 允许行宽不一致
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("读取 CSV 表头失败: %w", err)
	}
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("CSV 缺少表头")
	}

	var rows []binding.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("读取 CSV 第 %d 行失败: %w", len(rows)+2, err)
		}
		row := binding.Row{}
		empty := true
		for i, col := range header {
			val := ""
			if i < len(record) {
				val = record[i]
			}
			if val != "" {
				empty = false
			}
			row[col] = val
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return header, rows, nil
}

// ParseJSON 解析 JSON 数据源：顶层数组，或带 rows/data/items
// 字段的对象。列名取所有行键的并集，按字典序排列。
func ParseJSON(data []byte) ([]string, []binding.Row, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	items, err := digRows(raw)
	if err != nil {
		return nil, nil, err
	}

	var rows []binding.Row
	seen := map[string]bool{}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("JSON 第 %d 项不是对象", i+1)
		}
		row := binding.Row{}
		for k, v := range obj {
			row[k] = v
			seen[k] = true
		}
		rows = append(rows, row)
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns, rows, nil
}

// digRows 在常见的包裹结构里找出数据行数组。
func digRows(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"rows", "data", "items", "results"} {
			if inner, ok := v[key].([]any); ok {
				return inner, nil
			}
		}
	}
	return nil, fmt.Errorf("JSON 数据里找不到行数组")
}
