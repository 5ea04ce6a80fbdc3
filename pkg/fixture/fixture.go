// Package fixture serves a local replica of the public endpoints the
// contract suites were written against: a placeholder REST API, a country
// search API, an accounts endpoint that rejects every request and an echo
// endpoint.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/apicontract/internal/common"
)

// CookieName is the tracking cookie set on placeholder API responses.
const CookieName = "__cfduid"

// Options tweak the fixture. The zero value is ready to use.
type Options struct {
	// CookieDomain is the domain attribute of the tracking cookie.
	CookieDomain string
	// ImageBaseURL prefixes photo URLs; empty means the fixture's own /images route.
	ImageBaseURL string
	// Latency delays every response, for timeout tests.
	Latency time.Duration
}

// NewEngine builds the gin engine with every fixture route.
func NewEngine(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if opts.CookieDomain == "" {
		opts.CookieDomain = ".typicode.com"
	}
	if opts.Latency > 0 {
		engine.Use(func(c *gin.Context) {
			select {
			case <-time.After(opts.Latency):
			case <-c.Request.Context().Done():
			}
			c.Next()
		})
	}

	placeholder := engine.Group("/", placeholderHeaders(opts))
	placeholder.GET("/posts", func(c *gin.Context) {
		c.JSON(http.StatusOK, posts())
	})
	placeholder.GET("/posts/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		all := posts()
		if err != nil || id < 1 || id > len(all) {
			c.JSON(http.StatusNotFound, gin.H{})
			return
		}
		c.JSON(http.StatusOK, all[id-1])
	})
	placeholder.POST("/posts", func(c *gin.Context) {
		var in map[string]any
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in["id"] = len(postTitles) + 1
		c.JSON(http.StatusCreated, in)
	})
	placeholder.GET("/photos/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 || id > 5000 {
			c.JSON(http.StatusNotFound, gin.H{})
			return
		}
		base := opts.ImageBaseURL
		if base == "" {
			base = requestBase(c) + "/images"
		}
		c.JSON(http.StatusOK, photo(id, base))
	})
	placeholder.GET("/comments", func(c *gin.Context) {
		all := comments()
		postID := c.Query("postId")
		if postID == "" {
			c.JSON(http.StatusOK, all)
			return
		}
		filtered := make([]Comment, 0, len(all))
		for _, cm := range all {
			if strconv.Itoa(cm.PostID) == postID {
				filtered = append(filtered, cm)
			}
		}
		c.JSON(http.StatusOK, filtered)
	})
	engine.GET("/images/:size/:color", func(c *gin.Context) {
		c.Header("Cache-Control", "max-age=31536000")
		c.Data(http.StatusOK, "image/png", pngStub(c.Param("size"), c.Param("color")))
	})

	engine.GET("/country/search", func(c *gin.Context) {
		text := strings.ToLower(strings.TrimSpace(c.Query("text")))
		result := make([]Country, 0, len(countries))
		for _, ct := range countries {
			if text == "" || strings.Contains(strings.ToLower(ct.Name), text) {
				result = append(result, ct)
			}
		}
		c.Header("Keep-Alive", "timeout=5, max=100")
		c.JSON(http.StatusOK, gin.H{"RestResponse": gin.H{
			"messages": []string{fmt.Sprintf("Total [%d] records found.", len(result))},
			"result":   result,
		}})
	})

	// Any, CONNECT included, rejects every request the way the real
	// accounts API does without credentials.
	engine.Any("/rest/:type/:section", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"Message": "Authorization header is missing or invalid.", "Method": c.Request.Method})
	})

	engine.POST("/restnames/countries", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, c.ContentType()+"; charset=utf-8", body)
	})
	return engine
}

func placeholderHeaders(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Powered-By", "Express")
		c.Writer.Header().Add("Vary", "Origin, Accept-Encoding")
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     CookieName,
			Value:    "d41d8cd98f00b204e9800998ecf8427e1554823890",
			Path:     "/",
			Domain:   opts.CookieDomain,
			Expires:  time.Now().Add(365 * 24 * time.Hour).UTC().Truncate(time.Second),
			HttpOnly: true,
		})
		c.Next()
	}
}

func requestBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// pngStub returns the 8-byte PNG signature followed by a marker naming the
// requested size and color; enough for content-type and status checks.
func pngStub(size, color string) []byte {
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(sig, []byte(size+"/"+color)...)
}

// Server runs the fixture engine on a listener.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *common.Logger
}

// Listen binds addr (":0" for any free port) and returns a server ready to Serve.
func Listen(addr string, opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("fixture: listen %s: %w", addr, err)
	}
	return &Server{
		srv:    &http.Server{Handler: NewEngine(opts), ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: common.GetLogger().WithComponent("fixture"),
	}, nil
}

// URL returns the base URL of the listening server.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String()
}

// Serve blocks until ctx is cancelled, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(s.ln) }()
	s.logger.Info("fixture listening", "url", s.URL())
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
