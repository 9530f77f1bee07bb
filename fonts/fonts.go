package fonts

import (
	"fmt"

	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10oblique"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Load 返回内置后备字体（Latin Modern Sans）的字节数据。
// 模板里的 fontFamily 优先按系统字体解析，找不到时渲染器退回这里，
// 仓库本身不携带二进制字体文件。
// style 取值 "regular"、"bold"、"italic"。
func Load(style string) ([]byte, error) {
	switch style {
	case "", "regular":
		return lmsans10regular.TTF, nil
	case "bold":
		return lmsans10bold.TTF, nil
	case "italic":
		return lmsans10oblique.TTF, nil
	default:
		return nil, fmt.Errorf("未知的内置字体样式: %s", style)
	}
}
