package layout

import (
	"sort"
	"strings"

	"github.com/makers-cave/BatchArtPro/template"
)

// 该包是栅格与矢量两条渲染路径共用的布局计算：
// 元素排序、文本折行、对齐锚点与图片适配。
// 两个后端消费同一份结果，避免布局数学写两遍后各自漂移。

// TextPadding 是文本框的单侧内边距（px），折行宽度 = width - 2*TextPadding。
const TextPadding = 4.0

// Measurer 以当前字体度量一段文本的宽度（px）。
// 渲染器实现它；测试可以注入桩（例如按字符数估宽）。
type Measurer interface {
	TextWidth(s string) float64
}

// SortByZ 返回按 zIndex 升序的元素副本，相同 zIndex 保持原有相对顺序
// （稳定排序），数组位置不参与绘制次序。
func SortByZ(els []template.Element) []template.Element {
	out := make([]template.Element, len(els))
	copy(out, els)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}

// WrapText 对内容做贪心折行：单词逐个累积，加入下一个单词会超出
// maxWidth 时提交当前行另起一行；显式换行符直接断行；
// 最后一行在循环结束后提交。
func WrapText(content string, maxWidth float64, m Measurer) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if m.TextWidth(candidate) > maxWidth {
				lines = append(lines, current)
				current = word
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}

// TextLayout 是一个文本元素排版后的结果。
type TextLayout struct {
	Lines       []string
	AnchorX     float64 // 按对齐方式计算的水平锚点（画布坐标）
	Align       string  // left/center/right
	LineAdvance float64 // 行距 = fontSize × lineHeight
	StartY      float64 // 首行顶部
}

// LayoutText 计算文本元素的折行与锚点。锚点约定：
// left: x+4；center: x+width/2；right: x+width-4。
func LayoutText(el template.Element, content string, m Measurer) TextLayout {
	ts := el.TextStyle
	fontSize, lineHeight := 16.0, 1.2
	align := "left"
	if ts != nil {
		if ts.FontSize > 0 {
			fontSize = ts.FontSize
		}
		if ts.LineHeight > 0 {
			lineHeight = ts.LineHeight
		}
		if ts.TextAlign != "" {
			align = ts.TextAlign
		}
	}
	tl := TextLayout{
		Lines:       WrapText(content, el.Width-2*TextPadding, m),
		Align:       align,
		LineAdvance: fontSize * lineHeight,
		StartY:      el.Y,
	}
	switch align {
	case "center":
		tl.AnchorX = el.X + el.Width/2
	case "right", "end":
		tl.Align = "right"
		tl.AnchorX = el.X + el.Width - TextPadding
	default:
		tl.Align = "left"
		tl.AnchorX = el.X + TextPadding
	}
	return tl
}

// CropRect 描述源图片上的裁剪区域（像素）。
type CropRect struct {
	X, Y, W, H float64
}

// CoverCrop 计算 cover 适配的源裁剪矩形：保持纵横比填满目标框，
// 裁剪居中，不产生拉伸变形。
func CoverCrop(srcW, srcH, dstW, dstH float64) CropRect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return CropRect{W: srcW, H: srcH}
	}
	srcRatio := srcW / srcH
	dstRatio := dstW / dstH
	if srcRatio > dstRatio {
		// 源更宽，裁左右
		w := srcH * dstRatio
		return CropRect{X: (srcW - w) / 2, Y: 0, W: w, H: srcH}
	}
	// 源更高，裁上下
	h := srcW / dstRatio
	return CropRect{X: 0, Y: (srcH - h) / 2, W: srcW, H: h}
}

// ContainFit 计算 contain 适配的目标绘制矩形：整图可见、居中留白。
func ContainFit(srcW, srcH, dstX, dstY, dstW, dstH float64) (x, y, w, h float64) {
	if srcW <= 0 || srcH <= 0 {
		return dstX, dstY, dstW, dstH
	}
	scale := dstW / srcW
	if s := dstH / srcH; s < scale {
		scale = s
	}
	w = srcW * scale
	h = srcH * scale
	x = dstX + (dstW-w)/2
	y = dstY + (dstH-h)/2
	return
}

// StarFilled 判断第 index 颗星（0 基）是否按评分值填充，
// 浮点比较而非四舍五入：value=2.5 时第 3 颗星不填充。
func StarFilled(index int, value float64) bool {
	return float64(index) < value
}
