package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/template"
)

// solidPNG 生成纯色测试图的 PNG 字节。
func solidPNG(w, h int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// TestLoadImageDataURI 验证 data: URI 加载。
func TestLoadImageDataURI(t *testing.T) {
	e := NewEngine(Options{})
	data := solidPNG(4, 4, color.RGBA{R: 0xff, A: 0xff})
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	img, err := e.loadImage(src)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Fatalf("尺寸错误: %v", img.Bounds())
	}

	if _, err := e.loadImage("data:image/png;utf8,xxx"); err == nil {
		t.Fatalf("非 base64 的 data URI 应报错")
	}
}

// TestLoadImageHTTP 验证远程图片加载与错误状态码。
func TestLoadImageHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.png" {
			w.Write(solidPNG(8, 8, color.RGBA{G: 0xff, A: 0xff}))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewEngine(Options{HTTPClient: srv.Client()})
	if _, err := e.loadImage(srv.URL + "/ok.png"); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if _, err := e.loadImage(srv.URL + "/missing.png"); err == nil {
		t.Fatalf("404 应报错")
	}
}

// TestLoadImageRelativePath 验证相对路径必须有资源目录。
func TestLoadImageRelativePath(t *testing.T) {
	e := NewEngine(Options{})
	if _, err := e.loadImage("assets/logo.png"); err == nil {
		t.Fatalf("未指定资源目录时相对路径应报错")
	}
}

// TestPaintImagePlaceholder 验证坏图降级为占位框而不是报错。
func TestPaintImagePlaceholder(t *testing.T) {
	e := NewEngine(Options{})
	tpl := template.New("p", "")
	tpl.Settings.Width, tpl.Settings.Height = 100, 100

	el := template.NewElement(template.TypeImage)
	el.X, el.Y, el.Width, el.Height = 10, 10, 80, 80
	el.Content = "http://127.0.0.1:1/broken.png"
	tpl.Elements = append(tpl.Elements, el)

	img, err := e.Raster(tpl, binding.Row{}, 1)
	if err != nil {
		t.Fatalf("坏图不应让渲染失败: %v", err)
	}
	// 取远离居中标签的位置采样占位框的浅灰底
	r, g, b, _ := rgbaOf(img.At(15, 15))
	if !near(r, 0xf3) || !near(g, 0xf4) || !near(b, 0xf6) {
		t.Fatalf("应绘制占位框: %d %d %d", r, g, b)
	}
}

// TestFitImageCover 验证 cover 裁剪产出与元素框等像素的位图。
func TestFitImageCover(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	el := template.NewElement(template.TypeImage)
	el.Width, el.Height = 50, 50

	out := fitImage(src, el)
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 50 {
		t.Fatalf("裁剪尺寸错误: %v", out.Bounds())
	}
}

// TestMaskEllipse 验证内切椭圆之外的像素被置透明。
func TestMaskEllipse(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xff, A: 0xff})
		}
	}
	out := maskEllipse(img)
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("角落应被裁掉")
	}
	if _, _, _, a := out.At(10, 10).RGBA(); a == 0 {
		t.Fatalf("中心应保留")
	}
}

// TestMultiplyAlpha 验证透明度乘子作用在预乘分量上。
func TestMultiplyAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	out := multiplyAlpha(img, 0.5)
	px := out.RGBAAt(0, 0)
	if !near(px.R, 100) || !near(px.G, 50) || !near(px.B, 25) || !near(px.A, 127) {
		t.Fatalf("分量缩放错误: %+v", px)
	}
}
