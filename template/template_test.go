package template

import (
	"math"
	"reflect"
	"testing"
	"time"
)

// TestNewElementDefaults 验证各类型元素的出厂默认值。
func TestNewElementDefaults(t *testing.T) {
	text := NewElement(TypeText)
	if text.ID == "" {
		t.Fatalf("新元素应分配 id")
	}
	if !text.Visible || text.Locked {
		t.Fatalf("新元素应可见且未锁定")
	}
	if text.TextStyle == nil || text.TextStyle.FontSize != 16 {
		t.Fatalf("文本元素默认字号应为 16，实际 %+v", text.TextStyle)
	}
	if text.Width != 200 || text.Height != 50 {
		t.Fatalf("文本元素默认尺寸错误: %gx%g", text.Width, text.Height)
	}

	rating := NewElement(TypeRating)
	if got := rating.PropFloat("maxStars", 0); got != 5 {
		t.Fatalf("评分元素默认 maxStars 应为 5，实际 %g", got)
	}

	qr := NewElement(TypeQRCode)
	if qr.Width != qr.Height {
		t.Fatalf("二维码默认应为方形，实际 %gx%g", qr.Width, qr.Height)
	}

	if a, b := NewElement(TypeText), NewElement(TypeText); a.ID == b.ID {
		t.Fatalf("两次创建的元素 id 不应相同")
	}
}

// TestNormalize 验证几何归一化：NaN 拒绝、最小尺寸、透明度钳制与角度回绕。
func TestNormalize(t *testing.T) {
	el := NewElement(TypeRectangle)
	el.X = math.NaN()
	el.Width = 5
	el.Height = -10
	el.Rotation = -90
	el.Style.Opacity = 1.7
	el.ScaleX = 0
	el.Normalize()

	if el.X != 0 {
		t.Fatalf("NaN 坐标应回落为 0，实际 %g", el.X)
	}
	if el.Width != MinSize || el.Height != MinSize {
		t.Fatalf("宽高应钳到最小尺寸 %g，实际 %gx%g", MinSize, el.Width, el.Height)
	}
	if el.Rotation != 270 {
		t.Fatalf("-90 度应回绕为 270，实际 %g", el.Rotation)
	}
	if el.Style.Opacity != 1 {
		t.Fatalf("透明度应钳到 [0,1]，实际 %g", el.Style.Opacity)
	}
	if el.ScaleX != 1 {
		t.Fatalf("零缩放应恢复为 1，实际 %g", el.ScaleX)
	}

	el.Rotation = 720.5
	el.Normalize()
	if math.Abs(el.Rotation-0.5) > 1e-9 {
		t.Fatalf("720.5 度应归一化为 0.5，实际 %g", el.Rotation)
	}
}

// TestCloneIsolation 验证深拷贝后修改副本不影响原件。
func TestCloneIsolation(t *testing.T) {
	tpl := New("演示", "")
	el := NewElement(TypeText)
	el.ExtraProps = map[string]any{"variant": "plain"}
	tpl.Elements = append(tpl.Elements, el)

	cp := tpl.Clone()
	cp.Elements[0].X = 999
	cp.Elements[0].TextStyle.FontSize = 99
	cp.Elements[0].ExtraProps["variant"] = "changed"

	if tpl.Elements[0].X == 999 {
		t.Fatalf("副本坐标修改不应影响原件")
	}
	if tpl.Elements[0].TextStyle.FontSize == 99 {
		t.Fatalf("副本文本样式修改不应影响原件")
	}
	if tpl.Elements[0].ExtraProps["variant"] == "changed" {
		t.Fatalf("副本扩展属性修改不应影响原件")
	}
}

// TestDuplicate 验证复制元素会获得新 id 并整体偏移。
func TestDuplicate(t *testing.T) {
	el := NewElement(TypeRectangle)
	el.X, el.Y = 10, 20
	dup := el.Duplicate(20, 20)
	if dup.ID == el.ID {
		t.Fatalf("复制的元素应有新 id")
	}
	if dup.X != 30 || dup.Y != 40 {
		t.Fatalf("复制后位置应为 (30,40)，实际 (%g,%g)", dup.X, dup.Y)
	}
}

// TestEffectiveBounds 验证旋转后的外接框：中心不动，90 度旋转宽高互换。
func TestEffectiveBounds(t *testing.T) {
	el := NewElement(TypeRectangle)
	el.X, el.Y = 0, 0
	el.Width, el.Height = 100, 40

	plain := el.EffectiveBounds()
	if plain.X != 0 || plain.Y != 0 || plain.Width != 100 || plain.Height != 40 {
		t.Fatalf("未旋转时外接框应与元素框一致，实际 %+v", plain)
	}

	el.Rotation = 90
	rot := el.EffectiveBounds()
	if math.Abs(rot.Width-40) > 1e-6 || math.Abs(rot.Height-100) > 1e-6 {
		t.Fatalf("旋转 90 度后外接框应为 40x100，实际 %gx%g", rot.Width, rot.Height)
	}
	cx, cy := el.Center()
	if math.Abs(rot.X+rot.Width/2-cx) > 1e-6 || math.Abs(rot.Y+rot.Height/2-cy) > 1e-6 {
		t.Fatalf("旋转不应移动中心点")
	}
}

// TestValidate 验证重复 id 与非法画布尺寸被拒绝。
func TestValidate(t *testing.T) {
	tpl := New("演示", "")
	a := NewElement(TypeText)
	b := NewElement(TypeText)
	b.ID = a.ID
	tpl.Elements = []Element{a, b}
	if err := Validate(tpl); err == nil {
		t.Fatalf("重复元素 id 应校验失败")
	}

	tpl2 := New("演示", "")
	tpl2.Settings.Width = 0
	if err := Validate(tpl2); err == nil {
		t.Fatalf("零宽画布应校验失败")
	}
}

// TestEncodeDecodeRoundTrip 验证模板 JSON 编解码往返结构相等：
// id、样式、元素顺序与 zIndex 全部保留。
func TestEncodeDecodeRoundTrip(t *testing.T) {
	tpl := New("名片", "批量名片模板")
	tpl.CreatedAt = time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	tpl.UpdatedAt = tpl.CreatedAt.Add(time.Hour)

	text := NewElement(TypeText)
	text.Content = "{{name}}"
	text.ZIndex = 3
	text.Rotation = 15
	text.ScaleX, text.ScaleY = 1.5, 0.75

	rect := NewElement(TypeRectangle)
	rect.ZIndex = 1
	rect.Style.Opacity = 0.4
	rect.ExtraProps = map[string]any{"borderRadius": float64(8), "variant": "plain"}

	tpl.Elements = append(tpl.Elements, text, rect)

	data, err := Encode(tpl)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if !reflect.DeepEqual(back, tpl) {
		t.Fatalf("往返后结构不一致:\n原件 %+v\n往返 %+v", tpl, back)
	}
}

// TestDecodeDefaults 验证缺省可选字段的默认值：visible 缺省为 true，
// opacity 缺省为 1，显式的 false/0 原样保留。
func TestDecodeDefaults(t *testing.T) {
	doc := `{
		"id": "t1", "name": "导入件",
		"settings": {"width": 100, "height": 100},
		"elements": [
			{"id": "a", "type": "rectangle", "width": 40, "height": 30},
			{"id": "b", "type": "rectangle", "width": 40, "height": 30, "style": {"fill": "#336699"}},
			{"id": "c", "type": "rectangle", "width": 40, "height": 30, "visible": false, "style": {"opacity": 0}}
		]
	}`
	tpl, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}

	a := tpl.Elements[0]
	if !a.Visible || a.Style.Opacity != 1 {
		t.Fatalf("缺省字段应默认可见且不透明: visible=%v opacity=%g", a.Visible, a.Style.Opacity)
	}
	b := tpl.Elements[1]
	if b.Style.Opacity != 1 || b.Style.Fill != "#336699" {
		t.Fatalf("style 存在但缺 opacity 时应默认为 1: %+v", b.Style)
	}
	c := tpl.Elements[2]
	if c.Visible || c.Style.Opacity != 0 {
		t.Fatalf("显式的 false/0 应原样保留: visible=%v opacity=%g", c.Visible, c.Style.Opacity)
	}
}
