package template

import (
	"math"

	"github.com/google/uuid"
)

// 元素是画布上的单个可视对象。类型集合是封闭的：
// text、rectangle、circle、line、image、qrcode、barcode、rating。
// 渲染器按显式分发表处理各类型，未知类型会被静默跳过（向前兼容）。

// Type 标识元素变体。
type Type string

const (
	TypeText      Type = "text"
	TypeRectangle Type = "rectangle"
	TypeCircle    Type = "circle"
	TypeLine      Type = "line"
	TypeImage     Type = "image"
	TypeQRCode    Type = "qrcode"
	TypeBarcode   Type = "barcode"
	TypeRating    Type = "rating"
)

// MinSize 是交互缩放的最小宽高（px），校验时也以它为下限。
const MinSize = 20.0

// Element 是多态元素的公共载体。坐标为画布空间，原点在左上角；
// rotation 以度为单位，绕元素中心旋转。
type Element struct {
	ID       string  `json:"id"`
	Type     Type    `json:"type"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Visible  bool    `json:"visible"`
	Locked   bool    `json:"locked"`
	ZIndex   int     `json:"zIndex"`
	Style    Style   `json:"style"`
	// TextStyle 仅对 text 元素有意义。
	TextStyle *TextStyle `json:"textStyle,omitempty"`
	// Content 的语义随类型变化：文本内容、图片 URL、二维码/条码载荷、评分数值。
	Content string `json:"content,omitempty"`
	// DataField 是可选的绑定 token，例如 "{{price}}"。
	DataField string `json:"dataField,omitempty"`
	// ExtraProps 保存变体专属属性（image 的 variant/fit、rating 的 maxStars 等）。
	ExtraProps map[string]any `json:"extraProps,omitempty"`
}

// Style 是所有元素共享的外观属性。
type Style struct {
	Fill          string  `json:"fill"`
	Stroke        string  `json:"stroke"`
	StrokeWidth   float64 `json:"strokeWidth"`
	Opacity       float64 `json:"opacity"`
	ShadowColor   string  `json:"shadowColor,omitempty"`
	ShadowBlur    float64 `json:"shadowBlur,omitempty"`
	ShadowOffsetX float64 `json:"shadowOffsetX,omitempty"`
	ShadowOffsetY float64 `json:"shadowOffsetY,omitempty"`
}

// TextStyle 描述文本元素的排版属性。
type TextStyle struct {
	FontFamily     string  `json:"fontFamily"`
	FontSize       float64 `json:"fontSize"`
	FontWeight     string  `json:"fontWeight"`
	FontStyle      string  `json:"fontStyle"`
	TextDecoration string  `json:"textDecoration,omitempty"`
	TextAlign      string  `json:"textAlign"`
	LineHeight     float64 `json:"lineHeight"`
	Color          string  `json:"color"`
}

// NewElement 按类型返回带默认值的新元素。
func NewElement(kind Type) Element {
	el := Element{
		ID:      uuid.NewString(),
		Type:    kind,
		Name:    string(kind),
		X:       100,
		Y:       100,
		Width:   100,
		Height:  100,
		ScaleX:  1,
		ScaleY:  1,
		Visible: true,
		Style: Style{
			Fill:        "#ffffff",
			Stroke:      "#000000",
			StrokeWidth: 1,
			Opacity:     1,
		},
	}
	switch kind {
	case TypeText:
		el.Width, el.Height = 200, 50
		el.Content = "Text"
		el.Style.StrokeWidth = 0
		el.TextStyle = &TextStyle{
			FontFamily: "Arial",
			FontSize:   16,
			FontWeight: "normal",
			FontStyle:  "normal",
			TextAlign:  "left",
			LineHeight: 1.2,
			Color:      "#000000",
		}
	case TypeRectangle:
		el.Width, el.Height = 150, 100
		el.Style.Fill = "#4f8cff"
	case TypeCircle:
		el.Style.Fill = "#ffb74d"
	case TypeLine:
		el.Width, el.Height = 150, 4
		el.Style.Fill = "#000000"
		el.Style.StrokeWidth = 0
	case TypeImage:
		el.Width, el.Height = 200, 150
		el.ExtraProps = map[string]any{"variant": "rectangle", "fit": "cover"}
	case TypeQRCode:
		el.Width, el.Height = 120, 120
		el.Content = "https://example.com"
	case TypeBarcode:
		el.Width, el.Height = 200, 80
		el.Content = "123456789012"
		el.ExtraProps = map[string]any{"displayValue": true}
	case TypeRating:
		el.Width, el.Height = 160, 32
		el.Content = "3"
		el.ExtraProps = map[string]any{
			"maxStars":   5,
			"starColor":  "#fbbf24",
			"emptyColor": "#e5e7eb",
		}
	}
	return el
}

// CloneElement 深拷贝单个元素（含 ExtraProps 与 TextStyle）。
func CloneElement(el Element) Element {
	out := el
	if el.TextStyle != nil {
		ts := *el.TextStyle
		out.TextStyle = &ts
	}
	if el.ExtraProps != nil {
		out.ExtraProps = cloneProps(el.ExtraProps)
	}
	return out
}

// CloneElements 深拷贝元素切片，历史快照与导出快照都依赖它。
func CloneElements(els []Element) []Element {
	out := make([]Element, len(els))
	for i := range els {
		out[i] = CloneElement(els[i])
	}
	return out
}

func cloneProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case map[string]any:
			out[k] = cloneProps(val)
		case []any:
			cp := make([]any, len(val))
			copy(cp, val)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// Duplicate 返回携带新 id 和位置偏移的副本，对应复制/粘贴语义。
func (el Element) Duplicate(offsetX, offsetY float64) Element {
	out := CloneElement(el)
	out.ID = uuid.NewString()
	out.X += offsetX
	out.Y += offsetY
	return out
}

// Normalize 将元素修正到合法范围：宽高不小于 MinSize，
// opacity 收敛到 [0,1]，rotation 归一化到 [0,360)。
// NaN 的数值字段在这里拒绝（归零/复位），渲染路径假定文档已校验。
func (el *Element) Normalize() {
	if math.IsNaN(el.X) {
		el.X = 0
	}
	if math.IsNaN(el.Y) {
		el.Y = 0
	}
	if math.IsNaN(el.Width) || el.Width < MinSize {
		el.Width = MinSize
	}
	if math.IsNaN(el.Height) || el.Height < MinSize {
		el.Height = MinSize
	}
	if math.IsNaN(el.Rotation) {
		el.Rotation = 0
	}
	el.Rotation = math.Mod(el.Rotation, 360)
	if el.Rotation < 0 {
		el.Rotation += 360
	}
	if math.IsNaN(el.Style.Opacity) || el.Style.Opacity > 1 {
		el.Style.Opacity = 1
	}
	if el.Style.Opacity < 0 {
		el.Style.Opacity = 0
	}
	if el.ScaleX == 0 {
		el.ScaleX = 1
	}
	if el.ScaleY == 0 {
		el.ScaleY = 1
	}
}

// PropString 读取 ExtraProps 中的字符串属性。
func (el Element) PropString(key, def string) string {
	if el.ExtraProps == nil {
		return def
	}
	if v, ok := el.ExtraProps[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// PropFloat 读取 ExtraProps 中的数值属性，JSON 反序列化后数值都是 float64。
func (el Element) PropFloat(key string, def float64) float64 {
	if el.ExtraProps == nil {
		return def
	}
	switch v := el.ExtraProps[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// PropBool 读取 ExtraProps 中的布尔属性。
func (el Element) PropBool(key string, def bool) bool {
	if el.ExtraProps == nil {
		return def
	}
	if v, ok := el.ExtraProps[key].(bool); ok {
		return v
	}
	return def
}
