package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/makers-cave/BatchArtPro/binding"
	"github.com/makers-cave/BatchArtPro/cache"
	"github.com/makers-cave/BatchArtPro/config"
	"github.com/makers-cave/BatchArtPro/datasource"
	"github.com/makers-cave/BatchArtPro/exporter"
	"github.com/makers-cave/BatchArtPro/render"
	"github.com/makers-cave/BatchArtPro/server"
	"github.com/makers-cave/BatchArtPro/store"
	"github.com/makers-cave/BatchArtPro/template"
)

func main() {
	serve := flag.Bool("serve", false, "以 HTTP 服务方式运行")
	tplPath := flag.String("template", "", "模板 JSON 文件路径")
	dataPath := flag.String("data", "", "数据文件路径（.csv 或 .json），缺省按单张导出")
	format := flag.String("format", "pdf", "导出格式：pdf/png/jpeg/svg")
	output := flag.String("out", "", "输出文件路径，缺省按模板名生成")
	flag.Parse()

	if *serve {
		if err := runServer(); err != nil {
			log.Fatalf("服务退出: %v", err)
		}
		return
	}

	if *tplPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := runExport(*tplPath, *dataPath, *format, *output); err != nil {
		log.Fatalf("导出失败: %v", err)
	}
}

// runExport 是一次性的命令行导出：模板文件加数据文件，产物落盘。
func runExport(tplPath, dataPath, formatName, output string) error {
	file, err := os.Open(tplPath)
	if err != nil {
		return fmt.Errorf("打开模板文件失败: %w", err)
	}
	tpl, err := template.DecodeReader(file)
	file.Close()
	if err != nil {
		return err
	}

	rows := []binding.Row{{}}
	if dataPath != "" {
		rows, err = loadRows(dataPath)
		if err != nil {
			return err
		}
	}

	format, err := exporter.ParseFormat(formatName)
	if err != nil {
		return err
	}

	engine := render.NewEngine(render.Options{BaseDir: filepath.Dir(tplPath)})
	artifact, err := exporter.New(engine).Export(context.Background(), tpl, rows, format)
	if err != nil {
		return err
	}

	if output == "" {
		output = artifact.Filename
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(output, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("写输出文件失败: %w", err)
	}
	fmt.Printf("已导出 %d 行：%s\n", artifact.Rows, output)
	return nil
}

// loadRows 按扩展名解析数据文件。
func loadRows(path string) ([]binding.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		_, rows, err := datasource.ParseCSV(file)
		return rows, err
	case ".json":
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("读取数据文件失败: %w", err)
		}
		_, rows, err := datasource.ParseJSON(data)
		return rows, err
	}
	return nil, fmt.Errorf("不支持的数据文件格式: %s", path)
}

// runServer 按环境变量装配存储、缓存与渲染引擎并监听 HTTP。
func runServer() error {
	cfg := config.Load()

	var (
		templates store.TemplateStore
		sources   store.SourceStore
	)
	if cfg.DatabaseURL != "" {
		db, err := store.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Migrate(db); err != nil {
			return err
		}
		templates = store.NewPostgresTemplates(db)
		sources = store.NewPostgresSources(db)
		slog.Info("使用 PostgreSQL 存储")
	} else {
		templates = store.NewMemoryTemplates()
		sources = store.NewMemorySources()
		slog.Info("使用内存存储")
	}

	var previews *cache.Preview
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer client.Close()
		previews = cache.NewPreview(client, cache.DefaultTTL)
		slog.Info("预览缓存已启用", "addr", cfg.RedisAddr)
	}

	engine := render.NewEngine(render.Options{BaseDir: cfg.AssetsDir})
	srv := server.New(templates, sources, engine, previews)

	slog.Info("服务启动", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, srv.Router())
}
