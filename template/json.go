package template

import (
	"encoding/json"
	"fmt"
	"io"
)

// 模板的持久化格式就是其 JSON 序列化结果，
// 导出后再导入必须得到结构上相等的文档（id、样式、元素顺序、zIndex 全部保留）。

// UnmarshalJSON 给缺省的可选字段补默认值：visible 缺省为 true，
// style 整体缺省时 opacity 取 1。零值会把元素静默隐藏。
func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	aux := struct {
		Visible *bool  `json:"visible"`
		Style   *Style `json:"style"`
		*plain
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Visible = aux.Visible == nil || *aux.Visible
	if aux.Style == nil {
		e.Style = Style{Opacity: 1}
	} else {
		e.Style = *aux.Style
	}
	return nil
}

// UnmarshalJSON 使缺省的 opacity 取 1 而不是 0。
func (s *Style) UnmarshalJSON(data []byte) error {
	type plain Style
	aux := struct {
		Opacity *float64 `json:"opacity"`
		*plain
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Opacity == nil {
		s.Opacity = 1
	} else {
		s.Opacity = *aux.Opacity
	}
	return nil
}

// Encode 将模板序列化为缩进 JSON（与下载文件的格式一致）。
func Encode(t *Template) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("模板为空")
	}
	return json.MarshalIndent(t, "", "  ")
}

// Decode 从 JSON 数据解析模板并做基础校验。
func Decode(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("解析模板 JSON 失败: %w", err)
	}
	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DecodeReader 从 io.Reader 解析模板（导入上传文件时使用）。
func DecodeReader(r io.Reader) (*Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取模板数据失败: %w", err)
	}
	return Decode(data)
}

// Validate 检查模板不变式：画布尺寸为正整数，元素 id 在模板内唯一。
func Validate(t *Template) error {
	if t == nil {
		return fmt.Errorf("模板为空")
	}
	if t.Settings.Width <= 0 || t.Settings.Height <= 0 {
		return fmt.Errorf("画布尺寸非法: %dx%d", t.Settings.Width, t.Settings.Height)
	}
	seen := make(map[string]struct{}, len(t.Elements))
	for i := range t.Elements {
		id := t.Elements[i].ID
		if id == "" {
			return fmt.Errorf("第 %d 个元素缺少 id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("元素 id 重复: %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
