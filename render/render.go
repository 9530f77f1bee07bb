// Package render 将模板加一行数据合成为位图或矢量输出。
// 渲染基于 github.com/tdewolff/canvas：同一份场景描述可以交给
// rasterizer、svg 或 pdf 写出，保证各目标之间视觉一致。
package render

import (
	"fmt"
	"image/color"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tdewolff/canvas"

	"github.com/makers-cave/BatchArtPro/fonts"
	"github.com/makers-cave/BatchArtPro/symbology"
)

// 画布单位即像素。canvas 的字体接口以 pt 计，边界处做一次换算。
const pxToPt = 72.0 / 25.4

// Engine 持有渲染过程中可复用的资源：字体缓存、图片加载器与条码编码器。
// 并发安全，可被多个导出任务共享。
type Engine struct {
	baseDir  string
	client   *http.Client
	encoders *symbology.Registry

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options 配置渲染引擎。
type Options struct {
	// BaseDir 是相对图片路径的解析根目录，为空时拒绝相对路径。
	BaseDir string
	// HTTPClient 用于抓取远程图片，为空时使用带超时的默认客户端。
	HTTPClient *http.Client
	// Encoders 为空时使用内置的 QR/Code128 注册表。
	Encoders *symbology.Registry
}

// NewEngine 创建渲染引擎。
func NewEngine(opts Options) *Engine {
	client := opts.HTTPClient
	if client == nil {
		// 图片地址不可达时不能无限等待，超时后走占位图分支
		client = &http.Client{Timeout: 10 * time.Second}
	}
	encoders := opts.Encoders
	if encoders == nil {
		encoders = symbology.NewRegistry()
	}
	return &Engine{
		baseDir:      opts.BaseDir,
		client:       client,
		encoders:     encoders,
		fontFamilies: map[string]*fontFamilyEntry{},
	}
}

// fontFace 按字号（像素）与颜色构造字体面。
// 字体族优先从系统字体解析，失败时退回内置的后备字体。
func (e *Engine) fontFace(familyName, weight, fontStyle string, sizePx float64, col color.Color, decos ...canvas.FontDecorator) (*canvas.FontFace, error) {
	family, style, err := e.ensureFontFamily(familyName, weight, fontStyle)
	if err != nil {
		return nil, err
	}
	args := []interface{}{col, style, canvas.FontNormal}
	for _, deco := range decos {
		args = append(args, deco)
	}
	return family.Face(sizePx*pxToPt, args...), nil
}

func (e *Engine) ensureFontFamily(familyName, weight, fontStyle string) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := familyName + "|" + weight + "|" + fontStyle
	e.fontMu.Lock()
	defer e.fontMu.Unlock()

	if entry, ok := e.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(weight, fontStyle)
	name := familyName
	if name == "" {
		name = "Arial"
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadLocalFont(name, style); err != nil {
		fallback, fbErr := e.ensureFallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, fmt.Errorf("加载字体 %s 失败: %w", name, err)
		}
		entry := &fontFamilyEntry{family: fallback, style: fallbackStyle(style)}
		e.fontFamilies[key] = entry
		return entry.family, entry.style, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	e.fontFamilies[key] = entry
	return family, style, nil
}

// ensureFallback 把内置的常规/加粗/斜体三个字形装进同一个字体族。
func (e *Engine) ensureFallback() (*canvas.FontFamily, error) {
	if e.fallbackFamily != nil {
		return e.fallbackFamily, nil
	}
	family := canvas.NewFontFamily("fallback")
	for variant, style := range map[string]canvas.FontStyle{
		"regular": canvas.FontRegular,
		"bold":    canvas.FontBold,
		"italic":  canvas.FontItalic,
	} {
		data, err := fonts.Load(variant)
		if err != nil {
			return nil, err
		}
		if err := family.LoadFont(data, 0, style); err != nil {
			return nil, fmt.Errorf("加载内置字体 %s 失败: %w", variant, err)
		}
	}
	e.fallbackFamily = family
	return family, nil
}

// fallbackStyle 把任意字重折到后备字体携带的三个字形上。
func fallbackStyle(style canvas.FontStyle) canvas.FontStyle {
	result := canvas.FontRegular
	// 字重是枚举值而非位标志，只有 FontItalic 是位标志
	switch style.Weight() {
	case canvas.FontBold, canvas.FontExtraBold, canvas.FontBlack:
		result = canvas.FontBold
	}
	if style&canvas.FontItalic != 0 {
		if result == canvas.FontBold {
			// 后备字体没有粗斜体，斜体优先
			return canvas.FontItalic
		}
		result |= canvas.FontItalic
	}
	return result
}

// parseFontStyle 解析 CSS 风格的 fontWeight/fontStyle 组合。
func parseFontStyle(weight, fontStyle string) canvas.FontStyle {
	result := canvas.FontRegular
	switch strings.ToLower(weight) {
	case "900", "black":
		result = canvas.FontBlack
	case "800", "extrabold":
		result = canvas.FontExtraBold
	case "700", "bold":
		result = canvas.FontBold
	case "600", "semibold", "demibold":
		result = canvas.FontSemiBold
	case "500", "medium":
		result = canvas.FontMedium
	case "300", "light":
		result = canvas.FontLight
	}
	s := strings.ToLower(fontStyle)
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

// parseColor 解析 #rgb/#rrggbb/#rrggbbaa 颜色值，opacity 作为额外的透明度乘子。
// 空串、"none" 与 "transparent" 返回全透明。
func parseColor(s string, opacity float64) color.Color {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "transparent") {
		return canvas.Transparent
	}
	hex := strings.TrimPrefix(s, "#")
	var r, g, b, a uint8
	a = 0xff
	switch len(hex) {
	case 3:
		r = hexNibble(hex[0]) * 0x11
		g = hexNibble(hex[1]) * 0x11
		b = hexNibble(hex[2]) * 0x11
	case 6, 8:
		r = hexNibble(hex[0])<<4 | hexNibble(hex[1])
		g = hexNibble(hex[2])<<4 | hexNibble(hex[3])
		b = hexNibble(hex[4])<<4 | hexNibble(hex[5])
		if len(hex) == 8 {
			a = hexNibble(hex[6])<<4 | hexNibble(hex[7])
		}
	default:
		// 无法解析的颜色按黑色处理，避免整次渲染失败
		return canvas.RGBA(0, 0, 0, opacity)
	}
	return canvas.RGBA(float64(r)/255.0, float64(g)/255.0, float64(b)/255.0, float64(a)/255.0*opacity)
}

func hexNibble(c byte) uint8 {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
