package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/template"
)

// PDF 内嵌页面位图的采样倍率，2 倍在文件体积与清晰度之间取平衡。
const pdfRasterScale = 2.0

// Raster 渲染为位图，scale 为每画布单位的像素数，1 时输出
// 与模板设置等大的图像。
func (e *Engine) Raster(tpl *template.Template, row binding.Row, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	c, err := e.Scene(tpl, row)
	if err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(scale), canvas.DefaultColorSpace), nil
}

// PNG 渲染单行数据为 PNG 字节。
func (e *Engine) PNG(tpl *template.Template, row binding.Row) ([]byte, error) {
	img, err := e.Raster(tpl, row, 1)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// JPEG 渲染单行数据为 JPEG 字节。
func (e *Engine) JPEG(tpl *template.Template, row binding.Row) ([]byte, error) {
	img, err := e.Raster(tpl, row, 1)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("编码 JPEG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// SVG 渲染单行数据为 SVG 标记。场景与位图目标完全一致，
// 只是改由矢量写出，几何与排版不会发生偏移。
func (e *Engine) SVG(tpl *template.Template, row binding.Row) ([]byte, error) {
	c, err := e.Scene(tpl, row)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, c.W, c.H, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF 把多行数据渲染成单个多页 PDF：第一行建档，其后每行追加
// 一页等大页面，页面内容为该行的整页位图。行与行之间响应取消。
func (e *Engine) PDF(ctx context.Context, tpl *template.Template, rows []binding.Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("缺少可渲染的数据行")
	}
	w := float64(tpl.Settings.Width)
	h := float64(tpl.Settings.Height)

	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	writer.SetInfo(tpl.Name, tpl.Description, "", "", "BatchArtPro")

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			writer.NewPage(w, h)
		}
		img, err := e.Raster(tpl, row, pdfRasterScale)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行渲染失败: %w", i+1, err)
		}
		page := canvas.New(w, h)
		pageCtx := canvas.NewContext(page)
		pageCtx.SetCoordSystem(canvas.CartesianIV)
		drawImageFit(pageCtx, img, 0, 0, w)
		page.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}
