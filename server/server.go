// Package server 提供模板与数据源管理、预览和批量导出的 HTTP 接口。
// 路由布局沿用 /api 前缀，供编辑器前端调用。
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/makers-cave/BatchArtPro/cache"
	"github.com/makers-cave/BatchArtPro/exporter"
	"github.com/makers-cave/BatchArtPro/render"
	"github.com/makers-cave/BatchArtPro/store"
)

// Server 汇集各层依赖并暴露 HTTP 路由。
type Server struct {
	templates store.TemplateStore
	sources   store.SourceStore
	engine    *render.Engine
	exporter  *exporter.Exporter
	previews  *cache.Preview
}

// New 创建服务。previews 可以为 nil（不启用预览缓存）。
func New(templates store.TemplateStore, sources store.SourceStore, engine *render.Engine, previews *cache.Preview) *Server {
	return &Server{
		templates: templates,
		sources:   sources,
		engine:    engine,
		exporter:  exporter.New(engine),
		previews:  previews,
	}
}

// Router 组装全部路由与中间件。
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Post("/import", s.handleImportTemplate)
			r.Get("/{id}", s.handleGetTemplate)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
			r.Get("/{id}/download", s.handleDownloadTemplate)
			r.Get("/{id}/preview", s.handlePreviewTemplate)
		})

		r.Route("/datasources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/", s.handleCreateSource)
			r.Post("/upload", s.handleUploadSource)
			r.Post("/api", s.handleFetchAPISource)
			r.Get("/{id}", s.handleGetSource)
			r.Delete("/{id}", s.handleDeleteSource)
		})

		r.Post("/export", s.handleExport)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON 输出 JSON 响应。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("写响应失败", "error", err)
	}
}

// writeError 输出统一的错误结构，store.ErrNotFound 映射为 404。
func writeError(w http.ResponseWriter, status int, err error) {
	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.status = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// requestLogger 记录每个请求的方法、路径、状态码与耗时。
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start).String(),
		)
	})
}

// recoverer 把 handler 里的 panic 转成 500，避免拖垮进程。
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
