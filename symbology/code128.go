package symbology

import (
	"fmt"
	"image"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

// Code128 使用 Code 128 算法编码一维条码。
type Code128 struct{}

// Encode 生成条码位图。props 支持：
//   width/height: 输出尺寸像素（默认 400×120，条宽比例由算法保证）
// displayValue 与条码绘制无关，由渲染器决定是否在条码下方画出载荷文本。
func (Code128) Encode(content string, props map[string]any) (image.Image, error) {
	if content == "" {
		return nil, fmt.Errorf("条码内容为空")
	}
	bc, err := code128.Encode(content)
	if err != nil {
		return nil, fmt.Errorf("编码 Code128 失败: %w", err)
	}
	width, height := 400, 120
	if v, ok := props["width"].(float64); ok && v > 0 {
		width = int(v)
	}
	if v, ok := props["height"].(float64); ok && v > 0 {
		height = int(v)
	}
	if width < bc.Bounds().Dx() {
		width = bc.Bounds().Dx()
	}
	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return nil, fmt.Errorf("缩放条码失败: %w", err)
	}
	return scaled, nil
}
