// Package symbology 提供二维码/条码的符号编码器。
// 渲染引擎只依赖 Encoder 接口，具体符号算法可插拔替换。
package symbology

import (
	"fmt"
	"image"

	"github.com/makers-cave/BatchArtPro/template"
)

// Encoder 将载荷内容编码为符号位图。
// 返回的图像由渲染器缩放进元素框，符号比例由编码器保证。
type Encoder interface {
	Encode(content string, props map[string]any) (image.Image, error)
}

// Registry 按元素类型分发编码器。
type Registry struct {
	encoders map[template.Type]Encoder
}

// NewRegistry 返回带默认编码器（QR、Code128）的注册表。
func NewRegistry() *Registry {
	r := &Registry{encoders: map[template.Type]Encoder{}}
	r.Register(template.TypeQRCode, QR{})
	r.Register(template.TypeBarcode, Code128{})
	return r
}

// Register 覆盖某一类型的编码器。
func (r *Registry) Register(kind template.Type, enc Encoder) {
	r.encoders[kind] = enc
}

// Encode 查找类型对应的编码器并编码内容。
func (r *Registry) Encode(kind template.Type, content string, props map[string]any) (image.Image, error) {
	enc, ok := r.encoders[kind]
	if !ok {
		return nil, fmt.Errorf("类型 %s 没有注册符号编码器", kind)
	}
	return enc.Encode(content, props)
}
