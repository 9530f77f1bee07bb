package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/makers-cave/BatchArtPro/layout"
	"github.com/makers-cave/BatchArtPro/template"
)

// 单张图片最大 32MB，防止恶意地址拖垮导出
const maxImageBytes = 32 << 20

// paintImage 绘制图片元素。加载或解码失败不会中断整次渲染，
// 改画占位框，批量导出里单行的坏图不应拖垮其余行。
func (e *Engine) paintImage(ctx *canvas.Context, el template.Element, content string) {
	src := content
	if src == "" {
		src = el.PropString("src", "")
	}
	img, err := e.loadImage(src)
	if err != nil {
		e.paintPlaceholder(ctx, el)
		return
	}

	fitted := fitImage(img, el)
	if el.PropString("variant", "") == "circle" {
		fitted = maskEllipse(fitted)
	}
	if el.Style.Opacity < 1 {
		fitted = multiplyAlpha(fitted, el.Style.Opacity)
	}

	if el.PropString("fit", "cover") == "contain" {
		x, y, w, _ := layout.ContainFit(
			float64(img.Bounds().Dx()), float64(img.Bounds().Dy()),
			el.X, el.Y, el.Width, el.Height,
		)
		drawImageFit(ctx, fitted, x, y, w)
		return
	}
	drawImageFit(ctx, fitted, el.X, el.Y, el.Width)
}

// loadImage 按来源加载并解码图片：data: URI、http(s) 地址、
// 以及以 BaseDir 为根的文件路径。
func (e *Engine) loadImage(src string) (image.Image, error) {
	if src == "" {
		return nil, fmt.Errorf("图片地址为空")
	}
	var data []byte
	switch {
	case strings.HasPrefix(src, "data:"):
		idx := strings.Index(src, "base64,")
		if idx < 0 {
			return nil, fmt.Errorf("不支持的 data URI")
		}
		decoded, err := base64.StdEncoding.DecodeString(src[idx+len("base64,"):])
		if err != nil {
			return nil, fmt.Errorf("解码 data URI 失败: %w", err)
		}
		data = decoded
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		resp, err := e.client.Get(src)
		if err != nil {
			return nil, fmt.Errorf("抓取图片 %s 失败: %w", src, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("抓取图片 %s 失败: HTTP %d", src, resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
		}
		data = body
	default:
		path := src
		if !filepath.IsAbs(path) {
			if e.baseDir == "" {
				return nil, fmt.Errorf("未指定资源目录时不允许使用相对路径: %s", src)
			}
			path = filepath.Join(e.baseDir, path)
		}
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
		}
		data = blob
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", src, err)
	}
	return img, nil
}

// fitImage 按 cover 规则把源图重采样成与元素框等像素的位图：
// 先取居中的等比裁剪区，再缩放到目标尺寸。
func fitImage(img image.Image, el template.Element) *image.RGBA {
	dstW := int(math.Ceil(el.Width))
	dstH := int(math.Ceil(el.Height))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))

	b := img.Bounds()
	crop := layout.CoverCrop(float64(b.Dx()), float64(b.Dy()), el.Width, el.Height)
	srcRect := image.Rect(
		b.Min.X+int(crop.X), b.Min.Y+int(crop.Y),
		b.Min.X+int(crop.X+crop.W), b.Min.Y+int(crop.Y+crop.H),
	)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, srcRect, xdraw.Src, nil)
	return dst
}

// maskEllipse 把内切椭圆之外的像素置为透明，用于 variant=circle。
// 在像素层做裁剪可以让位图与矢量目标得到一致的视觉结果。
func maskEllipse(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	rx := float64(b.Dx()) / 2
	ry := float64(b.Dy()) / 2
	cx := float64(b.Min.X) + rx
	cy := float64(b.Min.Y) + ry
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy > 1 {
				img.SetRGBA(x, y, color.RGBA{})
			}
		}
	}
	return img
}

// multiplyAlpha 把元素透明度乘到位图的每个像素上。
func multiplyAlpha(src image.Image, opacity float64) *image.RGBA {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	xdraw.Draw(dst, b, src, b.Min, xdraw.Src)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride : (y-b.Min.Y)*dst.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			// 预乘 alpha 存储，四个分量一起缩放
			row[i] = uint8(float64(row[i]) * opacity)
			row[i+1] = uint8(float64(row[i+1]) * opacity)
			row[i+2] = uint8(float64(row[i+2]) * opacity)
			row[i+3] = uint8(float64(row[i+3]) * opacity)
		}
	}
	return dst
}

// drawImageFit 以目标宽度 w（画布单位）绘制位图。
func drawImageFit(ctx *canvas.Context, img image.Image, x, y, w float64) {
	if w <= 0 || img.Bounds().Dx() == 0 {
		return
	}
	dpmm := float64(img.Bounds().Dx()) / w
	if dpmm <= 0 {
		dpmm = 1
	}
	ctx.DrawImage(x, y, img, canvas.DPMM(dpmm))
}

// paintPlaceholder 画图片加载失败的占位框：浅灰底、边框加居中标签。
func (e *Engine) paintPlaceholder(ctx *canvas.Context, el template.Element) {
	ctx.SetFillColor(parseColor("#f3f4f6", el.Style.Opacity))
	ctx.SetStrokeColor(parseColor("#d1d5db", el.Style.Opacity))
	ctx.SetStrokeWidth(1)
	ctx.DrawPath(el.X, el.Y, canvas.Rectangle(el.Width, el.Height))

	face, err := e.fontFace("Arial", "", "", 12, parseColor("#9ca3af", el.Style.Opacity))
	if err != nil {
		return
	}
	cx, cy := el.Center()
	ctx.DrawText(cx, cy+face.Metrics().Ascent/2, canvas.NewTextLine(face, "No Image", canvas.Center))
}
