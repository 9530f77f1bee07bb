package symbology

import (
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// QR 使用标准 QR 算法编码内容（替换原型里的占位图案）。
type QR struct{}

// Encode 生成 QR 符号位图。props 支持：
//   errorCorrection: "low"/"medium"/"high"/"highest"（默认 medium）
//   size:            输出边长像素（默认 256）
func (QR) Encode(content string, props map[string]any) (image.Image, error) {
	if content == "" {
		return nil, fmt.Errorf("二维码内容为空")
	}
	level := qrcode.Medium
	if v, ok := props["errorCorrection"].(string); ok {
		switch v {
		case "low":
			level = qrcode.Low
		case "high":
			level = qrcode.High
		case "highest":
			level = qrcode.Highest
		}
	}
	size := 256
	if v, ok := props["size"].(float64); ok && v > 0 {
		size = int(v)
	} else if w, ok := props["width"].(float64); ok && w > 0 {
		// 渲染器会带上目标框尺寸，取短边保证方形符号装得下
		size = int(w)
		if h, ok := props["height"].(float64); ok && h > 0 && h < w {
			size = int(h)
		}
	}
	qr, err := qrcode.New(content, level)
	if err != nil {
		return nil, fmt.Errorf("编码二维码失败: %w", err)
	}
	return qr.Image(size), nil
}
