// Package httpapi 进程内的 Protect HTTP API 模拟实现，供测试与本地联调使用
package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"protect/internal/logger"
	"protect/pkg/rulespec"

	"github.com/gin-gonic/gin"
)

// 鉴权请求头，与 transport 保持一致
const (
	headerAPIKey        = "Galileo-API-Key"
	headerAuthorization = "Authorization"
)

// RecordedRequest 服务端收到的一次请求
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// InvokeFunc 自定义 invoke 处理，返回响应 JSON 对象与状态码
type InvokeFunc func(req *rulespec.Request) (map[string]any, int)

// Option 服务选项
type Option func(*Server)

// WithAPIKey 要求请求携带指定 API key 或 bearer token
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithInvokeFunc 覆盖默认的回显处理
func WithInvokeFunc(fn InvokeFunc) Option {
	return func(s *Server) { s.invoke = fn }
}

// WithInvokeDelay 每次 invoke 先等待 d，用于超时测试
func WithInvokeDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithLogger 指定日志记录器
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server 模拟 Protect API
type Server struct {
	engine *gin.Engine
	store  *store
	log    logger.Logger

	apiKey string
	invoke InvokeFunc
	delay  time.Duration

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewServer 创建模拟服务
func NewServer(opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		store: newStore(),
		log:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.record(), s.auth())
	s.routes(r)
	s.engine = r
	return s
}

// routes 注册路由
func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthcheck", s.handleHealthcheck)
	r.POST("/protect/invoke", s.handleInvoke)

	projects := r.Group("/projects")
	{
		projects.GET("", s.handleListProjects)
		projects.POST("", s.handleCreateProject)
		projects.GET("/:project_id", s.handleGetProject)
		projects.GET("/:project_id/stages", s.handleGetStage)
		projects.POST("/:project_id/stages", s.handleCreateStage)
		projects.POST("/:project_id/stages/:stage_id", s.handleUpdateStage)
		projects.PUT("/:project_id/stages/:stage_id", s.handlePauseStage)
	}
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Requests 返回已收到请求的副本
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest 返回最后一次请求，没有请求时 ok 为 false
func (s *Server) LastRequest() (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// CountRequests 统计指定方法与路径前缀的请求数
func (s *Server) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// record 记录请求并把请求体放回
func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
			Header: c.Request.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		start := time.Now()
		c.Next()
		s.log.Debug("mock 请求", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "elapsedMs", time.Since(start).Milliseconds())
	}
}

// auth 校验 API key 或 bearer token，健康检查除外
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKey == "" || c.Request.URL.Path == "/healthcheck" {
			c.Next()
			return
		}
		if c.GetHeader(headerAPIKey) == s.apiKey ||
			strings.TrimPrefix(c.GetHeader(headerAuthorization), "Bearer ") == s.apiKey {
			c.Next()
			return
		}
		abort(c, http.StatusUnauthorized, "Invalid credentials.")
	}
}

// abort 以 {"detail": msg} 结束请求
func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}
