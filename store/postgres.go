package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/makers-cave/BatchArtPro/datasource"
	"github.com/makers-cave/BatchArtPro/template"
)

//go:embed migrations
var embedMigrations embed.FS

// Connect 打开 PostgreSQL 连接池并用 ping 验证连通性。
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return db, nil
}

// Migrate 执行内嵌的 goose 迁移，建表脚本随二进制分发。
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("设置迁移方言失败: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("执行数据库迁移失败: %w", err)
	}
	return nil
}

// PostgresTemplates 把模板文档整体存进 JSONB 列。
// 模板结构演进频繁，文档存储免去每次加字段都改表。
type PostgresTemplates struct {
	db *sql.DB
}

// NewPostgresTemplates 创建 PostgreSQL 模板库。
func NewPostgresTemplates(db *sql.DB) *PostgresTemplates {
	return &PostgresTemplates{db: db}
}

// List 按更新时间倒序列出所有模板。
func (p *PostgresTemplates) List(ctx context.Context) ([]*template.Template, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM templates ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	defer rows.Close()

	var out []*template.Template
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("读取模板失败: %w", err)
		}
		var tpl template.Template
		if err := json.Unmarshal(doc, &tpl); err != nil {
			return nil, fmt.Errorf("解析模板文档失败: %w", err)
		}
		out = append(out, &tpl)
	}
	return out, rows.Err()
}

// Get 按 id 取模板。
func (p *PostgresTemplates) Get(ctx context.Context, id string) (*template.Template, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM templates WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	var tpl template.Template
	if err := json.Unmarshal(doc, &tpl); err != nil {
		return nil, fmt.Errorf("解析模板文档失败: %w", err)
	}
	return &tpl, nil
}

// Save 写入或覆盖模板。
func (p *PostgresTemplates) Save(ctx context.Context, tpl *template.Template) error {
	doc, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("序列化模板失败: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, doc = $3, updated_at = $5`,
		tpl.ID, tpl.Name, doc, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("保存模板失败: %w", err)
	}
	return nil
}

// Delete 按 id 删除模板。
func (p *PostgresTemplates) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("删除模板失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresSources 把数据源（含全量行数据）存进 JSONB 列。
type PostgresSources struct {
	db *sql.DB
}

// NewPostgresSources 创建 PostgreSQL 数据源库。
func NewPostgresSources(db *sql.DB) *PostgresSources {
	return &PostgresSources{db: db}
}

// List 按创建时间倒序列出所有数据源。
func (p *PostgresSources) List(ctx context.Context) ([]*datasource.Source, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM datasources ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("查询数据源失败: %w", err)
	}
	defer rows.Close()

	var out []*datasource.Source
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("读取数据源失败: %w", err)
		}
		var src datasource.Source
		if err := json.Unmarshal(doc, &src); err != nil {
			return nil, fmt.Errorf("解析数据源文档失败: %w", err)
		}
		out = append(out, &src)
	}
	return out, rows.Err()
}

// Get 按 id 取数据源。
func (p *PostgresSources) Get(ctx context.Context, id string) (*datasource.Source, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM datasources WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询数据源失败: %w", err)
	}
	var src datasource.Source
	if err := json.Unmarshal(doc, &src); err != nil {
		return nil, fmt.Errorf("解析数据源文档失败: %w", err)
	}
	return &src, nil
}

// Save 写入或覆盖数据源。
func (p *PostgresSources) Save(ctx context.Context, src *datasource.Source) error {
	doc, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("序列化数据源失败: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO datasources (id, name, doc, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, doc = $3`,
		src.ID, src.Name, doc, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("保存数据源失败: %w", err)
	}
	return nil
}

// Delete 按 id 删除数据源。
func (p *PostgresSources) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM datasources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("删除数据源失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ TemplateStore = (*PostgresTemplates)(nil)
	_ SourceStore   = (*PostgresSources)(nil)
)
