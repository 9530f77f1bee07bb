package binding

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/makers-cave/BatchArtPro/template"
)

// Row 是一条外部数据记录，按列名取值。
type Row map[string]any

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Resolve 将文本中的 {{field}} 替换为 row 中对应列的值。
// 行内缺失的列保留原占位符（绑定错误非致命）；
// 对不含 token 的字符串是幂等的。
func Resolve(content string, row Row) string {
	if len(row) == 0 || !strings.Contains(content, "{{") {
		return content
	}
	return tokenPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := tokenPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if val, ok := row[groups[1]]; ok {
			return valueString(val)
		}
		return match
	})
}

// ResolveElement 返回元素在给定数据行下的最终内容。
// 当 dataField 恰好是一个完整 token 且列存在时，其原始值覆盖 content
// （图片/评分等 content 可能为空的元素走这条快速路径）；
// 否则对 content 做行内替换。
func ResolveElement(el template.Element, row Row) string {
	if field := FieldName(el.DataField); field != "" {
		if val, ok := row[field]; ok {
			return valueString(val)
		}
	}
	return Resolve(el.Content, row)
}

// FieldName 在 s 是单个完整 {{field}} token 时返回列名，否则返回空串。
func FieldName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	groups := tokenPattern.FindStringSubmatch(s)
	if len(groups) < 2 || groups[0] != s {
		return ""
	}
	return groups[1]
}

// Fields 列出文本中出现的全部 token 列名（去重，保持出现顺序）。
func Fields(content string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range tokenPattern.FindAllStringSubmatch(content, -1) {
		if len(m) < 2 || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON 数值统一是 float64，整数值不带小数输出
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
