package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/layout"
	"github.com/makers-cave/BatchArtPro/template"
)

// Scene 把模板与一行数据合成为一个 canvas 场景，后续交由
// rasterizer/svg/pdf 写出。各目标共享同一份场景，保证视觉一致。
func (e *Engine) Scene(tpl *template.Template, row binding.Row) (*canvas.Canvas, error) {
	if tpl == nil {
		return nil, fmt.Errorf("模板为空")
	}
	w := float64(tpl.Settings.Width)
	h := float64(tpl.Settings.Height)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("画布尺寸非法: %dx%d", tpl.Settings.Width, tpl.Settings.Height)
	}

	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与模板保持左上角为原点

	bg := tpl.Settings.BackgroundColor
	if bg == "" {
		bg = "#ffffff"
	}
	ctx.SetFillColor(parseColor(bg, 1))
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))

	for _, el := range layout.SortByZ(tpl.Elements) {
		if !el.Visible {
			continue
		}
		el.Normalize()
		// 缩放折算进尺寸后按单位缩放绘制
		el.Width *= el.ScaleX
		el.Height *= el.ScaleY
		el.ScaleX, el.ScaleY = 1, 1

		content := binding.ResolveElement(el, row)

		ctx.Push()
		if el.Rotation != 0 {
			// CartesianIV 下正角度在屏幕上即为顺时针，与 CSS 旋转一致
			cx, cy := el.Center()
			ctx.RotateAbout(el.Rotation, cx, cy)
		}
		err := e.paintElement(ctx, el, content)
		ctx.Pop()
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// paintElement 按元素类型分发绘制。未知类型静默跳过，
// 以便旧版本渲染端打开携带新元素类型的模板。
func (e *Engine) paintElement(ctx *canvas.Context, el template.Element, content string) error {
	switch el.Type {
	case template.TypeText:
		return e.paintText(ctx, el, content)
	case template.TypeRectangle:
		paintRectangle(ctx, el)
	case template.TypeCircle:
		paintCircle(ctx, el)
	case template.TypeLine:
		paintLine(ctx, el)
	case template.TypeImage:
		e.paintImage(ctx, el, content)
	case template.TypeRating:
		paintRating(ctx, el, content)
	case template.TypeQRCode, template.TypeBarcode:
		return e.paintSymbol(ctx, el, content)
	}
	return nil
}

// applyStroke 设置描边。strokeWidth<=0 时不描边。
func applyStroke(ctx *canvas.Context, el template.Element) {
	if el.Style.StrokeWidth > 0 {
		ctx.SetStrokeColor(parseColor(el.Style.Stroke, el.Style.Opacity))
		ctx.SetStrokeWidth(el.Style.StrokeWidth)
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
	}
}

func paintRectangle(ctx *canvas.Context, el template.Element) {
	ctx.SetFillColor(parseColor(el.Style.Fill, el.Style.Opacity))
	applyStroke(ctx, el)
	radius := el.PropFloat("borderRadius", 0)
	if radius > 0 {
		ctx.DrawPath(el.X, el.Y, canvas.RoundedRectangle(el.Width, el.Height, radius))
		return
	}
	ctx.DrawPath(el.X, el.Y, canvas.Rectangle(el.Width, el.Height))
}

// paintCircle 绘制内切于元素框的椭圆，宽高不等时不是正圆。
func paintCircle(ctx *canvas.Context, el template.Element) {
	ctx.SetFillColor(parseColor(el.Style.Fill, el.Style.Opacity))
	applyStroke(ctx, el)
	cx, cy := el.Center()
	ctx.DrawPath(cx, cy, canvas.Ellipse(el.Width/2, el.Height/2))
}

// paintLine 把直线画成占满元素框的实心条，而不是几何线段。
func paintLine(ctx *canvas.Context, el template.Element) {
	fill := el.Style.Fill
	if fill == "" {
		fill = el.Style.Stroke
	}
	ctx.SetFillColor(parseColor(fill, el.Style.Opacity))
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(el.X, el.Y, canvas.Rectangle(el.Width, el.Height))
}

func (e *Engine) paintText(ctx *canvas.Context, el template.Element, content string) error {
	if content == "" {
		return nil
	}
	ts := el.TextStyle
	family, weight, fontStyle, deco := "Arial", "", "", ""
	fontSize := 16.0
	colorValue := "#000000"
	if ts != nil {
		if ts.FontFamily != "" {
			family = ts.FontFamily
		}
		if ts.FontSize > 0 {
			fontSize = ts.FontSize
		}
		weight = ts.FontWeight
		fontStyle = ts.FontStyle
		deco = ts.TextDecoration
		if ts.Color != "" {
			colorValue = ts.Color
		}
	}

	var decos []canvas.FontDecorator
	switch deco {
	case "underline":
		decos = append(decos, canvas.FontUnderline)
	case "line-through":
		decos = append(decos, canvas.FontStrikethrough)
	}
	face, err := e.fontFace(family, weight, fontStyle, fontSize, parseColor(colorValue, el.Style.Opacity), decos...)
	if err != nil {
		return err
	}

	tl := layout.LayoutText(el, content, face)
	var align canvas.TextAlign
	switch tl.Align {
	case "center":
		align = canvas.Center
	case "right":
		align = canvas.Right
	default:
		align = canvas.Left
	}

	ascent := face.Metrics().Ascent
	top := tl.StartY
	for _, line := range tl.Lines {
		if line != "" {
			ctx.DrawText(tl.AnchorX, top+ascent, canvas.NewTextLine(face, line, align))
		}
		top += tl.LineAdvance
	}
	return nil
}

// paintRating 从左到右绘制 maxStars 颗五角星，
// 星序号小于评分值时用 starColor 填充，否则用 emptyColor。
func paintRating(ctx *canvas.Context, el template.Element, content string) {
	maxStars := int(el.PropFloat("maxStars", 5))
	if maxStars <= 0 {
		maxStars = 5
	}
	value, _ := strconv.ParseFloat(strings.TrimSpace(content), 64)

	starColor := parseColor(el.PropString("starColor", "#fbbf24"), el.Style.Opacity)
	emptyColor := parseColor(el.PropString("emptyColor", "#e5e7eb"), el.Style.Opacity)

	step := el.Width / float64(maxStars)
	outer := step / 2
	if h := el.Height / 2; h < outer {
		outer = h
	}
	cy := el.Y + el.Height/2
	ctx.SetStrokeColor(canvas.Transparent)
	for i := 0; i < maxStars; i++ {
		if layout.StarFilled(i, value) {
			ctx.SetFillColor(starColor)
		} else {
			ctx.SetFillColor(emptyColor)
		}
		cx := el.X + step*float64(i) + step/2
		ctx.DrawPath(cx, cy, canvas.StarPolygon(5, outer, outer*0.5, true))
	}
}

// paintSymbol 通过可插拔编码器绘制二维码/条形码。
// 编码失败视为模板数据错误，向上返回而不是画占位图。
func (e *Engine) paintSymbol(ctx *canvas.Context, el template.Element, content string) error {
	if content == "" {
		return nil
	}
	props := map[string]any{}
	for k, v := range el.ExtraProps {
		props[k] = v
	}
	// 给编码器一个与目标框一致的像素尺寸提示
	props["width"] = el.Width
	props["height"] = el.Height

	img, err := e.encoders.Encode(el.Type, content, props)
	if err != nil {
		return fmt.Errorf("元素 %s 编码失败: %w", el.ID, err)
	}
	if el.Style.Opacity < 1 {
		img = multiplyAlpha(img, el.Style.Opacity)
	}

	// displayValue 打开时条形码下沿留出一条文本带
	boxH := el.Height
	label := el.Type == template.TypeBarcode && el.PropBool("displayValue", false)
	const labelBand = 14.0
	if label && boxH > labelBand*2 {
		boxH -= labelBand
	} else {
		label = false
	}

	x, y, w, _ := layout.ContainFit(
		float64(img.Bounds().Dx()), float64(img.Bounds().Dy()),
		el.X, el.Y, el.Width, boxH,
	)
	drawImageFit(ctx, img, x, y, w)

	if label {
		face, err := e.fontFace("Arial", "", "", labelBand-3, parseColor("#000000", el.Style.Opacity))
		if err != nil {
			return err
		}
		baseline := el.Y + el.Height - 2
		ctx.DrawText(el.X+el.Width/2, baseline, canvas.NewTextLine(face, content, canvas.Center))
	}
	return nil
}
