// Package server exposes archived article records and run history over
// HTTP.
package server

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pevans/newsgrab/archive"
	"github.com/pevans/newsgrab/article"
	"github.com/pevans/newsgrab/report"
	"github.com/pevans/newsgrab/runs"
)

// Pagination bounds.
const (
	defaultLimit = 50
	maxLimit     = 1000
)

// APIServer serves the article archive and the run history.
type APIServer struct {
	archive *archive.Archive
	runs    *runs.Store
}

// NewAPIServer creates a new API server.
func NewAPIServer(a *archive.Archive, r *runs.Store) *APIServer {
	return &APIServer{
		archive: a,
		runs:    r,
	}
}

// SetupRouter configures the Gin router with all routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/articles", s.HandleListArticles)
	api.GET("/articles/:id", s.HandleGetArticle)
	api.GET("/runs", s.HandleListRuns)
	api.GET("/runs/:id", s.HandleGetRun)

	router.GET("/report", s.HandleReport)

	return router
}

// Serve runs the API on addr until ctx is cancelled.
func (s *APIServer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Debug("server: request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// ListArticlesResponse represents the response for GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []article.Record `json:"articles"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListRunsResponse represents the response for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs   []runs.Run `json:"runs"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// HandleListArticles handles GET /api/v1/articles.
func (s *APIServer) HandleListArticles(c *gin.Context) {
	recs, ok := s.loadRecords(c)
	if !ok {
		return
	}

	// Filter by author (optional, case-insensitive substring)
	if author := c.Query("author"); author != "" {
		recs = filterByAuthor(recs, author)
	}

	// Filter by images (optional)
	if hasImages := c.Query("has_images"); hasImages != "" {
		want, err := strconv.ParseBool(hasImages)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid has_images parameter: must be true or false")
			return
		}
		recs = filterByImages(recs, want)
	}

	sortParam := c.DefaultQuery("sort", "published_desc")
	if !sortRecords(recs, sortParam) {
		writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid sort parameter: "+sortParam)
		return
	}

	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{
		Articles: paginate(recs, offset, limit),
		Total:    len(recs),
		Limit:    limit,
		Offset:   offset,
	})
}

// loadRecords lists the archive. Unreadable files are logged and skipped.
func (s *APIServer) loadRecords(c *gin.Context) ([]article.Record, bool) {
	result, err := s.archive.List()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to list articles: "+err.Error())
		return nil, false
	}
	for _, e := range result.Errors {
		zap.L().Warn("server: skipping unreadable record", zap.String("file", e.Filename), zap.Error(e.Err))
	}
	recs := result.Records
	if recs == nil {
		recs = []article.Record{}
	}
	return recs, true
}

func filterByAuthor(recs []article.Record, author string) []article.Record {
	needle := strings.ToLower(author)
	filtered := []article.Record{}
	for _, rec := range recs {
		if rec.HasAuthor() && strings.Contains(strings.ToLower(rec.Author()), needle) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

func filterByImages(recs []article.Record, want bool) []article.Record {
	filtered := []article.Record{}
	for _, rec := range recs {
		if (len(rec.ImageURLs()) > 0) == want {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// sortRecords sorts in place and reports whether sortParam is known.
// Records whose publish time cannot be parsed sort last either way.
func sortRecords(recs []article.Record, sortParam string) bool {
	published := func(desc bool) func(a, b article.Record) int {
		return func(a, b article.Record) int {
			ta, oka := a.PublishedTime()
			tb, okb := b.PublishedTime()
			switch {
			case !oka && !okb:
				return 0
			case !oka:
				return 1
			case !okb:
				return -1
			case desc:
				return tb.Compare(ta)
			default:
				return ta.Compare(tb)
			}
		}
	}

	switch sortParam {
	case "published_desc":
		slices.SortStableFunc(recs, published(true))
	case "published_asc":
		slices.SortStableFunc(recs, published(false))
	case "scraped_desc":
		slices.SortStableFunc(recs, func(a, b article.Record) int {
			return b.ScrapedAt().Compare(a.ScrapedAt())
		})
	case "scraped_asc":
		slices.SortStableFunc(recs, func(a, b article.Record) int {
			return cmp.Compare(a.ScrapedAt().UnixNano(), b.ScrapedAt().UnixNano())
		})
	default:
		return false
	}
	return true
}

// pagination parses limit and offset, writing a 400 on bad input.
func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = defaultLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return 0, 0, false
		}
		limit = min(parsed, maxLimit)
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		parsed, err := strconv.Atoi(offsetParam)
		if err != nil || parsed < 0 {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid offset parameter")
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// parseID parses the :id path parameter, writing a 400 on bad input.
func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "Invalid "+what+" ID: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// HandleGetArticle handles GET /api/v1/articles/{id}.
func (s *APIServer) HandleGetArticle(c *gin.Context) {
	id, ok := parseID(c, "article")
	if !ok {
		return
	}

	rec, err := s.archive.Get(id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to get article: "+err.Error())
		return
	}
	if rec == nil {
		writeError(c, http.StatusNotFound, "not_found", "Article with ID "+id.String()+" not found")
		return
	}

	c.JSON(http.StatusOK, rec)
}

// HandleListRuns handles GET /api/v1/runs.
func (s *APIServer) HandleListRuns(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	list, err := s.runs.ListRuns(runs.RunFilter{Limit: limit, Offset: offset})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to list runs: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, ListRunsResponse{Runs: list, Limit: limit, Offset: offset})
}

// HandleGetRun handles GET /api/v1/runs/{id}.
func (s *APIServer) HandleGetRun(c *gin.Context) {
	id, ok := parseID(c, "run")
	if !ok {
		return
	}

	run, err := s.runs.GetRun(id)
	if eris.Is(err, runs.ErrRunNotFound) {
		writeError(c, http.StatusNotFound, "not_found", "Run with ID "+id.String()+" not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to get run: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, run)
}

// HandleReport handles GET /report, rendering every archived record. The
// format query parameter picks html (default), table or json.
func (s *APIServer) HandleReport(c *gin.Context) {
	format, err := report.ParseFormat(c.DefaultQuery("format", string(report.FormatHTML)))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	recs, ok := s.loadRecords(c)
	if !ok {
		return
	}
	sortRecords(recs, "published_desc")

	switch format {
	case report.FormatHTML:
		c.Header("Content-Type", "text/html; charset=utf-8")
	case report.FormatJSON:
		c.Header("Content-Type", "application/json; charset=utf-8")
	default:
		c.Header("Content-Type", "text/plain; charset=utf-8")
	}
	c.Status(http.StatusOK)
	if err := report.Render(c.Writer, format, recs); err != nil {
		zap.L().Error("server: rendering report failed", zap.Error(err))
	}
}
