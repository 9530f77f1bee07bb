package template

import (
	"time"

	"github.com/google/uuid"
)

// 该文件定义模板文档模型：画布设置、元素集合与时间戳。
// 模板 JSON 是唯一要求逐位兼容的持久化格式（导出/导入必须无损往返）。

// Template 是保存/加载/导出的基本单位。
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Settings    Settings  `json:"settings"`
	Elements    []Element `json:"elements"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Settings 描述画布尺寸与网格行为，宽高以像素为单位。
type Settings struct {
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	BackgroundColor string `json:"backgroundColor"`
	SnapToGrid      bool   `json:"snapToGrid"`
	GridSize        int    `json:"gridSize"`
	ShowGrid        bool   `json:"showGrid"`
}

// DefaultSettings 返回新模板的画布默认值（1080×1080 白底，10px 网格）。
func DefaultSettings() Settings {
	return Settings{
		Width:           1080,
		Height:          1080,
		BackgroundColor: "#ffffff",
		SnapToGrid:      true,
		GridSize:        10,
		ShowGrid:        true,
	}
}

// New 创建一个空模板。
func New(name, description string) *Template {
	now := time.Now().UTC()
	return &Template{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Settings:    DefaultSettings(),
		Elements:    []Element{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone 返回模板的深拷贝，导出管线在快照上工作，
// 避免长批量导出期间的实时编辑污染进行中的行。
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	out.Elements = CloneElements(t.Elements)
	return &out
}

// ElementByID 按 id 查找元素，返回其索引；找不到时返回 -1。
func (t *Template) ElementByID(id string) int {
	for i := range t.Elements {
		if t.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// MaxZIndex 返回当前最大的 zIndex，空模板返回 0。
func (t *Template) MaxZIndex() int {
	max := 0
	for i := range t.Elements {
		if t.Elements[i].ZIndex > max {
			max = t.Elements[i].ZIndex
		}
	}
	return max
}
