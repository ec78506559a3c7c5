// Package web provides the HTTP API of the bot.
// It uses the Gin framework for routing and middleware.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/maypok86/otter/v2"

	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// Server represents the web server
type Server struct {
	engine           *gin.Engine
	webhookURL       string
	allowedHostRegex *regexp.Regexp

	mu         sync.Mutex
	httpServer *http.Server
}

var (
	server *Server
)

// Options configures a Server
type Options struct {
	// WebhookURL receives an embed per request, empty disables it
	WebhookURL string
	// AllowedHosts is matched against the Host header, empty allows every host
	AllowedHosts string
	RateLimit    RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultRateLimit allows 100 requests per minute and client IP
var DefaultRateLimit = RateLimitConfig{
	Window:      60 * time.Second,
	MaxRequests: 100,
}

// Init initializes the global web server
func Init(opts Options) (*Server, error) {
	s, err := NewServer(opts)
	if err != nil {
		return nil, err
	}
	server = s
	return server, nil
}

// Get returns the global web server
func Get() *Server {
	return server
}

// NewServer creates a new web server
func NewServer(opts Options) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:     gin.New(),
		webhookURL: opts.WebhookURL,
	}

	if opts.AllowedHosts != "" {
		re, err := regexp.Compile(opts.AllowedHosts)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed hosts pattern: %w", err)
		}
		s.allowedHostRegex = re
	}

	if opts.RateLimit.MaxRequests <= 0 || opts.RateLimit.Window <= 0 {
		opts.RateLimit = DefaultRateLimit
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.logsMiddleware())
	s.engine.Use(rateLimitMiddleware(opts.RateLimit))

	s.setupErrorHandlers()

	return s, nil
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) hostAllowed(host string) bool {
	return s.allowedHostRegex == nil || s.allowedHostRegex.MatchString(host)
}

// logsMiddleware logs every request and rejects the ones sent to unknown hosts
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.hostAllowed(c.Request.Host) {
			logger.Warn(fmt.Sprintf("[LOG] Suspicious request: %s %s | %s", c.Request.Method, c.Request.URL.Path, c.ClientIP()), "WebServer")
			go s.sendLogToWebhook(requestLog(c), true)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		logger.Debug(fmt.Sprintf("[LOG] New request: %s %s", c.Request.Method, c.Request.URL.Path), "WebServer")
		go s.sendLogToWebhook(requestLog(c), false)

		c.Next()
	}
}

// loggedRequest is the part of a request sent to the logs webhook.
// It is copied before the handler returns since gin reuses contexts.
type loggedRequest struct {
	Method  string
	Path    string
	IP      string
	Headers http.Header
	Query   string
}

func requestLog(c *gin.Context) loggedRequest {
	return loggedRequest{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		IP:      c.ClientIP(),
		Headers: c.Request.Header.Clone(),
		Query:   c.Request.URL.RawQuery,
	}
}

// sendLogToWebhook sends a request summary to the Discord webhook
func (s *Server) sendLogToWebhook(r loggedRequest, suspicious bool) {
	if s.webhookURL == "" {
		return
	}

	title := fmt.Sprintf("💫 | New %s request to the web server", r.Method)
	color := 0x00AE86

	if suspicious {
		title = fmt.Sprintf("💫 | Suspicious request rejected: %s %s", r.Method, r.Path)
		color = 0xFFA500
	}

	headers, _ := json.Marshal(r.Headers)
	query := r.Query
	if query == "" {
		query = "{}"
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"title": title,
				"description": fmt.Sprintf(
					"> **Path:** `%s`\n> **IP:** `%s`\n> **Headers:** ```%s``` \n> **Query:** ```%s```",
					r.Path,
					r.IP,
					string(headers),
					query,
				),
				"color":     color,
				"timestamp": time.Now().Format(time.RFC3339),
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// rateLimitMiddleware counts requests per client IP. Counters expire one
// window after the first request.
func rateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	hits := otter.Must(&otter.Options[string, *atomic.Int64]{
		MaximumSize:      100_000,
		ExpiryCalculator: otter.ExpiryCreating[string, *atomic.Int64](cfg.Window),
	})

	return func(c *gin.Context) {
		counter, _ := hits.SetIfAbsent(c.ClientIP(), new(atomic.Int64))

		if counter.Add(1) > int64(cfg.MaxRequests) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later.",
			})
			return
		}

		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	s.engine.HandleMethodNotAllowed = true

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested route does not exist.",
			"status":  404,
		})
	})

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "The HTTP method is not allowed for this route.",
			"status":  405,
		})
	})
}

func (s *Server) newHTTPServer(port string) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	return srv
}

func serve(srv *http.Server) error {
	logger.Info(fmt.Sprintf("🚀 Server listening on http://localhost%s", srv.Addr), "WebServer")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start starts the web server and blocks until it stops
func (s *Server) Start(port string) error {
	return serve(s.newHTTPServer(port))
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(port string) {
	srv := s.newHTTPServer(port)
	go func() {
		if err := serve(srv); err != nil {
			logger.Error(fmt.Sprintf("Error starting web server: %v", err), "WebServer")
		}
	}()
}

// Shutdown stops accepting requests and waits for the running ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}

// GET registers a GET route
func (s *Server) GET(path string, handlers ...gin.HandlerFunc) {
	s.engine.GET(path, handlers...)
}
