// Package history 维护元素数组快照的线性撤销/重做栈。
package history

import (
	"time"

	"github.com/makers-cave/BatchArtPro/template"
)

const (
	// MaxEntries 为栈容量上限，溢出时淘汰最旧的快照。
	MaxEntries = 50
	// DebounceInterval 是合并连续变更的静默窗口：持续拖拽只产生
	// 一条历史记录，而不是每帧一条。
	DebounceInterval = 300 * time.Millisecond
)

// Entry 是一次可撤销动作的快照。快照独立于当前文档（深拷贝），
// 只覆盖元素数组，从不触碰模板的 settings 与名称。
type Entry struct {
	Label    string
	Elements []template.Element
	At       time.Time
}

// Stack 是线性历史栈。cursor 指向与当前文档一致的快照；
// 非并发安全，调用方在单个编辑会话里串行使用。
type Stack struct {
	entries []Entry
	cursor  int
	pending *Entry
}

// NewStack 以初始元素状态建栈，初始状态占据栈底且不可撤销越过。
func NewStack(initial []template.Element) *Stack {
	return &Stack{
		entries: []Entry{{Label: "初始状态", Elements: template.CloneElements(initial)}},
	}
}

// Record 记录一次变更。与上一次未落栈的变更间隔不足
// DebounceInterval 时合并为同一条记录（保留首个标签，快照取最新）。
// 时间由调用方注入，行为是时间戳的纯函数，便于测试。
func (s *Stack) Record(label string, elements []template.Element, at time.Time) {
	snapshot := template.CloneElements(elements)
	if s.pending != nil && at.Sub(s.pending.At) < DebounceInterval {
		s.pending.Elements = snapshot
		s.pending.At = at
		return
	}
	s.flushPending()
	s.pending = &Entry{Label: label, Elements: snapshot, At: at}
}

// Flush 立即提交尚未落栈的变更。撤销/重做以及任何需要读取
// 栈状态的操作之前都应调用。
func (s *Stack) Flush() {
	s.flushPending()
}

func (s *Stack) flushPending() {
	if s.pending == nil {
		return
	}
	entry := *s.pending
	s.pending = nil

	// 在光标不在栈顶时提交新动作会截断重做分支
	s.entries = s.entries[:s.cursor+1]
	s.entries = append(s.entries, entry)
	s.cursor++

	if len(s.entries) > MaxEntries {
		overflow := len(s.entries) - MaxEntries
		s.entries = append(s.entries[:0:0], s.entries[overflow:]...)
		s.cursor -= overflow
	}
}

// Undo 把光标后移一格并返回该快照的深拷贝。到达栈底时返回 false。
func (s *Stack) Undo() ([]template.Element, bool) {
	s.flushPending()
	if s.cursor == 0 {
		return nil, false
	}
	s.cursor--
	return template.CloneElements(s.entries[s.cursor].Elements), true
}

// Redo 把光标前移一格并返回该快照的深拷贝。已在栈顶时返回 false。
func (s *Stack) Redo() ([]template.Element, bool) {
	s.flushPending()
	if s.cursor >= len(s.entries)-1 {
		return nil, false
	}
	s.cursor++
	return template.CloneElements(s.entries[s.cursor].Elements), true
}

// CanUndo 判断是否还能撤销。
func (s *Stack) CanUndo() bool {
	return s.pending != nil || s.cursor > 0
}

// CanRedo 判断是否还能重做。
func (s *Stack) CanRedo() bool {
	return s.pending == nil && s.cursor < len(s.entries)-1
}

// Len 返回已落栈的快照数。
func (s *Stack) Len() int {
	return len(s.entries)
}

// Labels 返回自栈底起的动作标签，用于界面展示。
func (s *Stack) Labels() []string {
	labels := make([]string, len(s.entries))
	for i, e := range s.entries {
		labels[i] = e.Label
	}
	return labels
}
