package editor

import "strings"

// HandleKey 处理一次按键。key 为按键名（ArrowLeft、Delete、a 等），
// primary 表示平台主修饰键（参见 PrimaryModifier）是否按下。
// 返回是否消费了这次按键。
func (s *Session) HandleKey(key string, shift, primary bool) bool {
	switch key {
	case "ArrowLeft":
		s.Nudge(-1, 0, shift)
		return true
	case "ArrowRight":
		s.Nudge(1, 0, shift)
		return true
	case "ArrowUp":
		s.Nudge(0, -1, shift)
		return true
	case "ArrowDown":
		s.Nudge(0, 1, shift)
		return true
	case "Delete", "Backspace":
		s.DeleteSelection()
		return true
	case "Escape":
		s.ClearSelection()
		return true
	}

	if !primary {
		return false
	}
	switch strings.ToLower(key) {
	case "c":
		s.Copy()
		return true
	case "v":
		s.Paste()
		return true
	case "a":
		s.SelectAll()
		return true
	case "z":
		if shift {
			return s.Redo()
		}
		return s.Undo()
	case "y":
		return s.Redo()
	}
	return false
}
