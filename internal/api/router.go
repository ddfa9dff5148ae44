// Package api 暴露抓取任务与观演记录的 HTTP 接口（gin）。
package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/logstore"
	"github.com/John-Robertt/culturelog/internal/metrics"
)

const corsMaxAge = 12 * time.Hour

// LogStore 是 handler 需要的记录库能力（logstore.Store 满足它）。
type LogStore interface {
	Create(ctx context.Context, l domain.CultureLog) (int64, error)
	Get(ctx context.Context, id int64) (domain.CultureLog, error)
	List(ctx context.Context, q logstore.ListQuery) ([]domain.CultureLog, int, error)
	Delete(ctx context.Context, id int64) (domain.CultureLog, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Reset(ctx context.Context) error
}

// PhotoStore 是 handler 需要的照片存储能力（photos.Store 满足它）。
type PhotoStore interface {
	Save(originalName string, data []byte) (domain.Photo, error)
	RemoveAll(photos []domain.Photo)
	Reset() error
}

// Submitter 提交后台抓取任务（tasks.Runner 满足它）。
type Submitter interface {
	Submit(ctx context.Context, url string) (domain.Task, error)
}

// TaskReader 查询任务状态（tasks.Tracker 满足它）。
type TaskReader interface {
	Get(ctx context.Context, id string) (domain.Task, bool, error)
}

// Deps 汇总路由需要的依赖。
type Deps struct {
	Logs    LogStore
	Photos  PhotoStore
	Submit  Submitter
	Tasks   TaskReader
	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	CORSOrigins    []string // 为空或含 "*" 时允许任意来源
	AllowReset     bool
	UploadDir      string
	ThumbDir       string
	MaxUploadBytes int64 // 单个文件；<=0 使用 DefaultMaxUploadBytes
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(cors.New(corsConfig(d.CORSOrigins)))
	router.Use(requestLogger(d.Logger, d.Metrics))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	h := &handler{deps: d}
	api := router.Group("/api")
	api.POST("/scrape", h.submitScrape)
	api.GET("/scrape-status/:id", h.scrapeStatus)
	api.POST("/upload-photos", h.uploadPhotos)
	api.GET("/logs", h.listLogs)
	api.POST("/logs", h.createLog)
	api.GET("/logs/:id", h.getLog)
	api.DELETE("/logs/:id", h.deleteLog)
	api.GET("/stats", h.stats)
	api.POST("/reset-database", h.resetDatabase)

	if d.UploadDir != "" {
		router.Static("/uploads", d.UploadDir)
	}
	if d.ThumbDir != "" {
		router.Static("/thumbnails", d.ThumbDir)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        corsMaxAge,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(log zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		}

		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
