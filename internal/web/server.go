// Package web is the HTTP presentation layer: channel index, paginated
// channel pages, and the refresh/debug endpoints.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"teleread/internal/config"
	"teleread/internal/ingest"
	"teleread/internal/normalize"
	"teleread/internal/source"
	"teleread/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	cfg       *config.Config
	store     *store.Store
	refresher *ingest.Refresher
	log       *logrus.Logger
	engine    *gin.Engine
}

func New(cfg *config.Config, st *store.Store, ref *ingest.Refresher, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logrus.New()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"ago":   ago,
		"nl2br": nl2br,
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(tmpl)

	s := &Server{cfg: cfg, store: st, refresher: ref, log: log, engine: engine}

	engine.GET("/", s.index)
	engine.GET("/c/:slug", s.channelPage)
	engine.GET("/refresh/:slug", s.refresh)
	engine.GET("/api/debug/feed/:slug", s.debugFeed)

	return s, nil
}

// Handler exposes the router for an http.Server or a test.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":    "Channels",
		"Channels": s.cfg.Channels,
	})
}

func (s *Server) channelPage(c *gin.Context) {
	ch, ok := s.cfg.Find(c.Param("slug"))
	if !ok {
		c.String(http.StatusNotFound, "channel not found")
		return
	}

	limit := intQuery(c, "limit", s.cfg.PageSize)
	page := intQuery(c, "page", 1)

	total, err := s.store.Count(c.Request.Context(), ch.Slug)
	if err != nil {
		s.fail(c, err)
		return
	}

	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	posts, err := s.store.List(c.Request.Context(), ch.Slug, limit, (page-1)*limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=60")
	c.HTML(http.StatusOK, "channel.html", gin.H{
		"Title":   ch.Title,
		"Channel": ch,
		"Posts":   posts,
		"Total":   total,
		"Page":    page,
		"Pages":   pages,
		"Limit":   limit,
	})
}

func (s *Server) refresh(c *gin.Context) {
	ch, ok := s.cfg.Find(c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	res, err := s.refresher.Refresh(c.Request.Context(), ch)
	if err != nil {
		s.log.WithField("channel", ch.Slug).WithError(err).Warn("refresh failed")
		var fe *source.FetchError
		if errors.As(err, &fe) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slug":    ch.Slug,
		"scanned": res.Scanned,
		"saved":   res.Saved,
	})
}

func (s *Server) debugFeed(c *gin.Context) {
	ch, ok := s.cfg.Find(c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	srcName, ref, err := s.refresher.SourceRef(ch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.refresher.Peek(c.Request.Context(), ch, 5)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	sample := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		sample = append(sample, gin.H{
			"title":        e.Title,
			"link":         e.Link,
			"has_summary":  e.Summary != "",
			"has_content":  len(e.Content) > 0,
			"text_preview": preview(normalize.Text(e), 140),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"source": srcName,
		"ref":    ref,
		"count":  len(entries),
		"sample": sample,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.WithError(err).Error("request failed")
	c.String(http.StatusInternalServerError, "internal error")
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ago renders a stored RFC 3339 timestamp as a relative time for templates.
func ago(dateISO string) string {
	t, err := time.Parse(time.RFC3339, dateISO)
	if err != nil {
		return dateISO
	}
	return humanize.Time(t)
}

// nl2br escapes text and turns newlines into <br> so posts keep their
// paragraph structure.
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
