// Package exporter 负责批量合成：按数据行逐行渲染模板，
// 汇集为单个 PDF 文档或按行命名的压缩包。
package exporter

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/render"
	"github.com/makers-cave/BatchArtPro/template"
)

// Format 是导出目标格式。
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

// ParseFormat 把用户输入解析为导出格式。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("不支持的导出格式: %s", s)
}

// Artifact 是一次批量导出的产物。
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// Exporter 驱动批量导出。
type Exporter struct {
	engine *render.Engine
}

// New 创建导出器。
func New(engine *render.Engine) *Exporter {
	return &Exporter{engine: engine}
}

// Export 按行顺序逐行渲染。渲染基于模板的深拷贝快照，导出期间
// 对原模板的编辑不会影响进行中的任务。单行的图片加载失败由渲染
// 层降级为占位图；行级的渲染或编码错误会带上 1 基行号中止整批。
// 取消只在行与行之间生效，不会打断行内渲染。
func (x *Exporter) Export(ctx context.Context, tpl *template.Template, rows []binding.Row, format Format) (*Artifact, error) {
	if tpl == nil {
		return nil, fmt.Errorf("模板为空")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("没有可导出的数据行")
	}
	snapshot := tpl.Clone()

	if format == FormatPDF {
		data, err := x.engine.PDF(ctx, snapshot, rows)
		if err != nil {
			return nil, err
		}
		return &Artifact{
			Filename:    safeName(snapshot.Name) + ".pdf",
			ContentType: "application/pdf",
			Data:        data,
			Rows:        len(rows),
		}, nil
	}

	var renderRow func(*template.Template, binding.Row) ([]byte, error)
	var ext string
	switch format {
	case FormatPNG:
		renderRow, ext = x.engine.PNG, "png"
	case FormatJPEG:
		renderRow, ext = x.engine.JPEG, "jpg"
	case FormatSVG:
		renderRow, ext = x.engine.SVG, "svg"
	default:
		return nil, fmt.Errorf("不支持的导出格式: %s", format)
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	name := safeName(snapshot.Name)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			archive.Close()
			return nil, err
		}
		data, err := renderRow(snapshot, row)
		if err != nil {
			archive.Close()
			return nil, fmt.Errorf("第 %d 行导出失败: %w", i+1, err)
		}
		entry, err := archive.Create(fmt.Sprintf("%s_%d.%s", name, i+1, ext))
		if err != nil {
			archive.Close()
			return nil, fmt.Errorf("写入压缩包失败: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			archive.Close()
			return nil, fmt.Errorf("写入压缩包失败: %w", err)
		}
	}
	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("关闭压缩包失败: %w", err)
	}

	return &Artifact{
		Filename:    name + ".zip",
		ContentType: "application/zip",
		Data:        buf.Bytes(),
		Rows:        len(rows),
	}, nil
}

// safeName 把模板名收敛成安全的文件名片段。
func safeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "template"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "template"
	}
	return b.String()
}
