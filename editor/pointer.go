package editor

import (
	"github.com/makers-cave/BatchArtPro/template"
)

// Handle 是选择框上的 8 个缩放把手。
type Handle string

const (
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
	HandleNW Handle = "nw"
)

type dragState struct {
	ids     []string
	originX map[string]float64
	originY map[string]float64
	startX  float64 // 画布坐标
	startY  float64
}

type resizeState struct {
	id     string
	handle Handle
	origin template.Rect
	startX float64
	startY float64
}

// HitTest 返回画布坐标 (x, y) 命中的最上层可见元素下标，
// 未命中返回 -1。命中判定用旋转后的外接框，锁定元素也可命中。
func (s *Session) HitTest(x, y float64) int {
	hit := -1
	for i := range s.Template.Elements {
		el := &s.Template.Elements[i]
		if !el.Visible {
			continue
		}
		if !el.EffectiveBounds().Contains(x, y) {
			continue
		}
		if hit < 0 || el.ZIndex >= s.Template.Elements[hit].ZIndex {
			// zIndex 相同时后来者居上，与绘制顺序一致
			hit = i
		}
	}
	return hit
}

// Click 处理画布点击（屏幕坐标）。additive 为 shift/ctrl 点击：
// 切换命中元素的选中状态；普通点击替换选择集；点空白清空。
func (s *Session) Click(screenX, screenY float64, additive bool) {
	x, y := s.CanvasPoint(screenX, screenY)
	i := s.HitTest(x, y)
	if i < 0 {
		if !additive {
			s.ClearSelection()
		}
		return
	}
	id := s.Template.Elements[i].ID
	if additive {
		s.ToggleSelect(id)
		return
	}
	s.Select(id)
}

// StartDrag 在选择工具下开始拖动。平移工具抑制元素拖拽。
// 按下点须命中选中集里的元素，否则先把命中元素变为唯一选中。
func (s *Session) StartDrag(screenX, screenY float64) bool {
	if s.Tool != ToolSelect {
		return false
	}
	x, y := s.CanvasPoint(screenX, screenY)
	i := s.HitTest(x, y)
	if i < 0 {
		return false
	}
	if !s.IsSelected(s.Template.Elements[i].ID) {
		s.Select(s.Template.Elements[i].ID)
	}

	st := &dragState{
		originX: map[string]float64{},
		originY: map[string]float64{},
		startX:  x,
		startY:  y,
	}
	for _, idx := range s.selectedUnlocked() {
		el := &s.Template.Elements[idx]
		st.ids = append(st.ids, el.ID)
		st.originX[el.ID] = el.X
		st.originY[el.ID] = el.Y
	}
	if len(st.ids) == 0 {
		return false
	}
	s.drag = st
	return true
}

// DragTo 按当前指针位置移动拖动中的元素。开启网格吸附时
// 吸附的是元素左上角，而不是指针本身。
func (s *Session) DragTo(screenX, screenY float64) {
	if s.drag == nil {
		return
	}
	x, y := s.CanvasPoint(screenX, screenY)
	dx := x - s.drag.startX
	dy := y - s.drag.startY
	for _, id := range s.drag.ids {
		i := s.Template.ElementByID(id)
		if i < 0 {
			continue
		}
		el := &s.Template.Elements[i]
		el.X = s.snap(s.drag.originX[id] + dx)
		el.Y = s.snap(s.drag.originY[id] + dy)
	}
}

// EndDrag 结束拖动并记录历史。
func (s *Session) EndDrag() {
	if s.drag == nil {
		return
	}
	s.drag = nil
	s.record("移动元素")
}

// StartResize 抓住指定元素的某个把手开始缩放。锁定元素拒绝缩放。
func (s *Session) StartResize(id string, handle Handle, screenX, screenY float64) bool {
	i := s.Template.ElementByID(id)
	if i < 0 || s.Template.Elements[i].Locked {
		return false
	}
	el := &s.Template.Elements[i]
	x, y := s.CanvasPoint(screenX, screenY)
	s.resize = &resizeState{
		id:     id,
		handle: handle,
		origin: template.Rect{X: el.X, Y: el.Y, Width: el.Width, Height: el.Height},
		startX: x,
		startY: y,
	}
	return true
}

// ResizeTo 按指针位置缩放。每个把手固定对侧边/角，任何一次
// 增量都保证宽高不低于最小尺寸；旋转角不受缩放影响。
func (s *Session) ResizeTo(screenX, screenY float64) {
	if s.resize == nil {
		return
	}
	i := s.Template.ElementByID(s.resize.id)
	if i < 0 {
		return
	}
	el := &s.Template.Elements[i]
	x, y := s.CanvasPoint(screenX, screenY)
	dx := x - s.resize.startX
	dy := y - s.resize.startY
	o := s.resize.origin

	left, top := o.X, o.Y
	right, bottom := o.X+o.Width, o.Y+o.Height

	switch s.resize.handle {
	case HandleE, HandleNE, HandleSE:
		right += dx
	case HandleW, HandleNW, HandleSW:
		left += dx
	}
	switch s.resize.handle {
	case HandleS, HandleSE, HandleSW:
		bottom += dy
	case HandleN, HandleNE, HandleNW:
		top += dy
	}

	// 最小尺寸把移动的那条边往回压，对侧边保持锚定
	switch s.resize.handle {
	case HandleE, HandleNE, HandleSE:
		if right-left < template.MinSize {
			right = left + template.MinSize
		}
	case HandleW, HandleNW, HandleSW:
		if right-left < template.MinSize {
			left = right - template.MinSize
		}
	}
	switch s.resize.handle {
	case HandleS, HandleSE, HandleSW:
		if bottom-top < template.MinSize {
			bottom = top + template.MinSize
		}
	case HandleN, HandleNE, HandleNW:
		if bottom-top < template.MinSize {
			top = bottom - template.MinSize
		}
	}

	el.X, el.Y = left, top
	el.Width, el.Height = right-left, bottom-top
}

// EndResize 结束缩放并记录历史。
func (s *Session) EndResize() {
	if s.resize == nil {
		return
	}
	s.resize = nil
	s.record("调整大小")
}
