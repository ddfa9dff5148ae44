package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/logstore"
	"github.com/John-Robertt/culturelog/internal/photos"
	"github.com/John-Robertt/culturelog/internal/scrape"
)

// DefaultMaxUploadBytes 是单张照片的大小上限。
const DefaultMaxUploadBytes = 16 << 20

type handler struct {
	deps Deps
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (h *handler) submitScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须是 JSON：" + err.Error()})
		return
	}
	u, err := scrape.ValidateURL(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.deps.Submit.Submit(c.Request.Context(), u)
	if err != nil {
		h.internalError(c, "提交抓取任务失败", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": t.ID})
}

func (h *handler) scrapeStatus(c *gin.Context) {
	t, ok, err := h.deps.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "查询任务失败", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "unknown"})
		return
	}
	resp := gin.H{"status": t.Status}
	switch t.Status {
	case domain.TaskDone:
		resp["result"] = t.Result
	case domain.TaskError:
		resp["error"] = t.Error
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) uploadPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	limit := h.deps.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}

	saved := make([]domain.Photo, 0, len(form.File["photos"]))
	for _, fh := range form.File["photos"] {
		if fh.Filename == "" {
			continue
		}
		if fh.Size > limit {
			h.deps.Logger.Warn().Str("file", fh.Filename).Int64("size", fh.Size).Msg("照片过大，已跳过")
			continue
		}
		f, err := fh.Open()
		if err != nil {
			h.internalError(c, "读取上传文件失败", err)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, limit+1))
		_ = f.Close()
		if err != nil {
			h.internalError(c, "读取上传文件失败", err)
			return
		}

		p, err := h.deps.Photos.Save(fh.Filename, data)
		if errors.Is(err, photos.ErrUnsupportedType) {
			continue
		}
		if err != nil {
			h.internalError(c, "保存照片失败", err)
			return
		}
		saved = append(saved, p)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": saved})
}

func (h *handler) listLogs(c *gin.Context) {
	q := logstore.ListQuery{
		Page:     queryInt(c, "page", 1),
		PerPage:  queryInt(c, "per_page", logstore.DefaultPerPage),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}.Normalize()

	logs, total, err := h.deps.Logs.List(c.Request.Context(), q)
	if err != nil {
		h.internalError(c, "查询记录失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":     logs,
		"total":    total,
		"page":     q.Page,
		"per_page": q.PerPage,
		"pages":    (total + q.PerPage - 1) / q.PerPage,
	})
}

type createLogRequest struct {
	Title      string         `json:"title" binding:"required"`
	Category   string         `json:"category" binding:"required"`
	Date       string         `json:"date" binding:"required"`
	Venue      string         `json:"venue"`
	Performers []string       `json:"performers"`
	Program    []string       `json:"program"`
	Price      []string       `json:"price"`
	Rating     *int           `json:"rating" binding:"omitempty,min=1,max=5"`
	Review     string         `json:"review"`
	Photos     []domain.Photo `json:"photos"`
	SourceURL  string         `json:"source_url"`
}

func (h *handler) createLog(c *gin.Context) {
	var req createLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	id, err := h.deps.Logs.Create(c.Request.Context(), domain.CultureLog{
		Title:      req.Title,
		Category:   req.Category,
		Date:       req.Date,
		Venue:      req.Venue,
		Performers: req.Performers,
		Program:    req.Program,
		Price:      req.Price,
		Rating:     req.Rating,
		Review:     req.Review,
		Photos:     req.Photos,
		SourceURL:  req.SourceURL,
	})
	if err != nil {
		h.internalError(c, "保存记录失败", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

func (h *handler) getLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	l, err := h.deps.Logs.Get(c.Request.Context(), id)
	if errors.Is(err, logstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "记录不存在"})
		return
	}
	if err != nil {
		h.internalError(c, "查询记录失败", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *handler) deleteLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	l, err := h.deps.Logs.Delete(c.Request.Context(), id)
	if errors.Is(err, logstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "记录不存在"})
		return
	}
	if err != nil {
		h.internalError(c, "删除记录失败", err)
		return
	}
	h.deps.Photos.RemoveAll(l.Photos)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handler) stats(c *gin.Context) {
	st, err := h.deps.Logs.Stats(c.Request.Context())
	if err != nil {
		h.internalError(c, "统计失败", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) resetDatabase(c *gin.Context) {
	if !h.deps.AllowReset {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "重置接口未启用"})
		return
	}
	if err := h.deps.Photos.Reset(); err != nil {
		h.internalError(c, "清空照片失败", err)
		return
	}
	if err := h.deps.Logs.Reset(c.Request.Context()); err != nil {
		h.internalError(c, "重置数据库失败", err)
		return
	}
	h.deps.Logger.Warn().Msg("数据库与照片已重置")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handler) internalError(c *gin.Context, msg string, err error) {
	h.deps.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg + "：" + err.Error()})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id 必须是正整数"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
