// Package store 持久化模板与数据源。提供内存实现（默认、零依赖
// 运行）与 PostgreSQL 实现（文档整体存 JSONB）。
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/makers-cave/BatchArtPro/datasource"
	"github.com/makers-cave/BatchArtPro/template"
)

// ErrNotFound 表示按 id 找不到记录。
var ErrNotFound = errors.New("记录不存在")

// TemplateStore 是模板的持久化接口。
type TemplateStore interface {
	List(ctx context.Context) ([]*template.Template, error)
	Get(ctx context.Context, id string) (*template.Template, error)
	Save(ctx context.Context, tpl *template.Template) error
	Delete(ctx context.Context, id string) error
}

// SourceStore 是数据源的持久化接口。
type SourceStore interface {
	List(ctx context.Context) ([]*datasource.Source, error)
	Get(ctx context.Context, id string) (*datasource.Source, error)
	Save(ctx context.Context, src *datasource.Source) error
	Delete(ctx context.Context, id string) error
}

// MemoryTemplates 是内存模板库，读写都走深拷贝，
// 调用方改自己的副本不会污染库内状态。
type MemoryTemplates struct {
	mu   sync.RWMutex
	byID map[string]*template.Template
}

// NewMemoryTemplates 创建内存模板库。
func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{byID: map[string]*template.Template{}}
}

// List 按更新时间倒序列出所有模板。
func (m *MemoryTemplates) List(ctx context.Context) ([]*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*template.Template, 0, len(m.byID))
	for _, tpl := range m.byID {
		out = append(out, tpl.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Get 按 id 取模板。
func (m *MemoryTemplates) Get(ctx context.Context, id string) (*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tpl, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return tpl.Clone(), nil
}

// Save 新增或覆盖模板。
func (m *MemoryTemplates) Save(ctx context.Context, tpl *template.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[tpl.ID] = tpl.Clone()
	return nil
}

// Delete 按 id 删除模板。
func (m *MemoryTemplates) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// MemorySources 是内存数据源库。数据源解析完成后只读，
// 存取浅拷贝结构体即可。
type MemorySources struct {
	mu   sync.RWMutex
	byID map[string]*datasource.Source
}

// NewMemorySources 创建内存数据源库。
func NewMemorySources() *MemorySources {
	return &MemorySources{byID: map[string]*datasource.Source{}}
}

// List 按创建时间倒序列出所有数据源。
func (m *MemorySources) List(ctx context.Context) ([]*datasource.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*datasource.Source, 0, len(m.byID))
	for _, src := range m.byID {
		cp := *src
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get 按 id 取数据源。
func (m *MemorySources) Get(ctx context.Context, id string) (*datasource.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *src
	return &cp, nil
}

// Save 新增或覆盖数据源。
func (m *MemorySources) Save(ctx context.Context, src *datasource.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *src
	m.byID[src.ID] = &cp
	return nil
}

// Delete 按 id 删除数据源。
func (m *MemorySources) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

var (
	_ TemplateStore = (*MemoryTemplates)(nil)
	_ SourceStore   = (*MemorySources)(nil)
)
