// Package editor 把指针与键盘输入翻译成元素几何变更。
// 它只操作内存中的文档状态，与渲染后端无关，但坐标变换约定
// （左上原点、中心旋转）与渲染层保持一致。
package editor

import (
	"math"
	"runtime"
	"time"

	"github.com/makers-cave/BatchArtPro/history"
	"github.com/makers-cave/BatchArtPro/template"
)

// Tool 是画布上互斥的工具状态。
type Tool string

const (
	ToolSelect Tool = "select"
	ToolPan    Tool = "pan"
)

// 缩放范围限制
const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Session 是一次编辑会话：文档、视口、选择集与历史栈。
// 非并发安全，一个会话服务一个编辑者。
type Session struct {
	Template *template.Template

	Zoom       float64
	PanX, PanY float64
	Tool       Tool

	// Clock 注入时间，便于测试历史合并行为。
	Clock func() time.Time

	selected  []string
	clipboard []template.Element
	hist      *history.Stack
	drag      *dragState
	resize    *resizeState
}

// NewSession 以模板当前状态开启编辑会话。
func NewSession(tpl *template.Template) *Session {
	return &Session{
		Template: tpl,
		Zoom:     1,
		Tool:     ToolSelect,
		Clock:    time.Now,
		hist:     history.NewStack(tpl.Elements),
	}
}

// CanvasPoint 把屏幕坐标映射到画布坐标：(screen - pan) / zoom。
func (s *Session) CanvasPoint(screenX, screenY float64) (float64, float64) {
	return (screenX - s.PanX) / s.Zoom, (screenY - s.PanY) / s.Zoom
}

// SetTool 切换工具。切到平移工具时保留选择集，只抑制拖拽。
func (s *Session) SetTool(tool Tool) {
	if tool != ToolSelect && tool != ToolPan {
		return
	}
	s.Tool = tool
}

// ZoomAt 以屏幕上 (screenX, screenY) 为锚点缩放，factor 为倍率增量。
// 无论当前工具是什么都可缩放。
func (s *Session) ZoomAt(screenX, screenY, factor float64) {
	next := s.Zoom * factor
	if next < MinZoom {
		next = MinZoom
	} else if next > MaxZoom {
		next = MaxZoom
	}
	if next == s.Zoom {
		return
	}
	// 锚点下的画布坐标在缩放前后保持不动
	cx, cy := s.CanvasPoint(screenX, screenY)
	s.Zoom = next
	s.PanX = screenX - cx*s.Zoom
	s.PanY = screenY - cy*s.Zoom
}

// PanBy 平移视口（屏幕坐标增量）。
func (s *Session) PanBy(dx, dy float64) {
	s.PanX += dx
	s.PanY += dy
}

// Selected 返回选中元素 id 的副本，保持选中顺序。
func (s *Session) Selected() []string {
	return append([]string(nil), s.selected...)
}

// IsSelected 判断元素是否被选中。
func (s *Session) IsSelected(id string) bool {
	for _, sel := range s.selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Select 替换选择集为单个元素。
func (s *Session) Select(id string) {
	s.selected = []string{id}
}

// ToggleSelect 把元素加入或移出选择集（shift/ctrl 点击）。
func (s *Session) ToggleSelect(id string) {
	for i, sel := range s.selected {
		if sel == id {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
	}
	s.selected = append(s.selected, id)
}

// SelectAll 选中所有可见元素。
func (s *Session) SelectAll() {
	s.selected = s.selected[:0]
	for _, el := range s.Template.Elements {
		if el.Visible {
			s.selected = append(s.selected, el.ID)
		}
	}
}

// ClearSelection 清空选择集。
func (s *Session) ClearSelection() {
	s.selected = nil
}

// selectedUnlocked 返回当前选中且未锁定的元素下标。
// 锁定元素仍可选中、仍然可见，只是排除在几何变更之外。
func (s *Session) selectedUnlocked() []int {
	var idxs []int
	for i := range s.Template.Elements {
		el := &s.Template.Elements[i]
		if el.Locked || !s.IsSelected(el.ID) {
			continue
		}
		idxs = append(idxs, i)
	}
	return idxs
}

// AddElement 以类型默认值新建元素并置于最顶层，新元素成为唯一选中。
func (s *Session) AddElement(kind template.Type) *template.Element {
	el := template.NewElement(kind)
	el.ZIndex = s.Template.MaxZIndex() + 1
	s.Template.Elements = append(s.Template.Elements, el)
	s.Select(el.ID)
	s.record("新增元素")
	return &s.Template.Elements[len(s.Template.Elements)-1]
}

// DeleteSelection 删除选中元素（锁定的保留）。
func (s *Session) DeleteSelection() {
	idxs := s.selectedUnlocked()
	if len(idxs) == 0 {
		return
	}
	keep := s.Template.Elements[:0]
	for i := range s.Template.Elements {
		el := s.Template.Elements[i]
		if el.Locked || !s.IsSelected(el.ID) {
			keep = append(keep, el)
		}
	}
	s.Template.Elements = keep
	s.selected = nil
	s.record("删除元素")
}

// Copy 把选中元素放进会话剪贴板。
func (s *Session) Copy() {
	var copied []template.Element
	for _, el := range s.Template.Elements {
		if s.IsSelected(el.ID) {
			copied = append(copied, el)
		}
	}
	s.clipboard = template.CloneElements(copied)
}

// Paste 以 (+20, +20) 偏移粘贴剪贴板内容，新元素获得新 id
// 并整体置顶，粘贴结果成为新的选择集。
func (s *Session) Paste() {
	if len(s.clipboard) == 0 {
		return
	}
	s.selected = s.selected[:0]
	z := s.Template.MaxZIndex()
	for _, el := range s.clipboard {
		dup := el.Duplicate(20, 20)
		z++
		dup.ZIndex = z
		s.Template.Elements = append(s.Template.Elements, dup)
		s.selected = append(s.selected, dup.ID)
	}
	s.record("粘贴元素")
}

// Nudge 用方向键微调选中元素，shift 时步长 10px，否则 1px。
func (s *Session) Nudge(dx, dy float64, shift bool) {
	step := 1.0
	if shift {
		step = 10.0
	}
	idxs := s.selectedUnlocked()
	if len(idxs) == 0 {
		return
	}
	for _, i := range idxs {
		s.Template.Elements[i].X += dx * step
		s.Template.Elements[i].Y += dy * step
	}
	s.record("移动元素")
}

// Mutate 对单个元素执行属性编辑并记录历史。锁定元素不受影响。
func (s *Session) Mutate(id, label string, fn func(*template.Element)) bool {
	for i := range s.Template.Elements {
		el := &s.Template.Elements[i]
		if el.ID != id || el.Locked {
			continue
		}
		fn(el)
		el.Normalize()
		s.record(label)
		return true
	}
	return false
}

// Undo 撤销上一次变更。
func (s *Session) Undo() bool {
	els, ok := s.hist.Undo()
	if ok {
		s.Template.Elements = els
		s.pruneSelection()
	}
	return ok
}

// Redo 重做被撤销的变更。
func (s *Session) Redo() bool {
	els, ok := s.hist.Redo()
	if ok {
		s.Template.Elements = els
		s.pruneSelection()
	}
	return ok
}

// CanUndo 判断是否还能撤销。
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo 判断是否还能重做。
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// FlushHistory 立即提交待合并的历史记录。
func (s *Session) FlushHistory() { s.hist.Flush() }

func (s *Session) record(label string) {
	s.hist.Record(label, s.Template.Elements, s.Clock())
}

// pruneSelection 丢掉撤销/重做后不复存在的元素 id。
func (s *Session) pruneSelection() {
	keep := s.selected[:0]
	for _, id := range s.selected {
		if s.Template.ElementByID(id) >= 0 {
			keep = append(keep, id)
		}
	}
	s.selected = keep
}

// snap 把坐标吸附到网格。
func (s *Session) snap(v float64) float64 {
	grid := float64(s.Template.Settings.GridSize)
	if !s.Template.Settings.SnapToGrid || grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// PrimaryModifier 返回平台约定的主修饰键：macOS 用 meta，
// 其余平台用 ctrl。
func PrimaryModifier() string {
	if runtime.GOOS == "darwin" {
		return "meta"
	}
	return "ctrl"
}
