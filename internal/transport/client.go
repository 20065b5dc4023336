// Package transport 封装访问 Protect API 的 HTTP 客户端
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"protect/internal/config"
	"protect/internal/logger"
	"protect/pkg/errx"
)

// 鉴权请求头
const (
	HeaderAPIKey        = "Galileo-API-Key"
	HeaderAuthorization = "Authorization"
)

// StatusError 非 2xx 响应
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// StatusCode 从错误链中取出 HTTP 状态码，不存在时返回 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client Protect API 客户端，不做重试
type Client struct {
	baseURL  string
	apiKey   string
	jwtToken string
	http     *http.Client
	log      logger.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 指定底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger 指定日志记录器
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New 根据配置创建客户端
func New(cfg *config.ProtectConfig, opts ...Option) (*Client, error) {
	base, err := cfg.APIBaseURL()
	if err != nil {
		return nil, errx.Wrap(errx.CodeConfig, err, "resolve api url")
	}
	c := &Client{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		jwtToken: cfg.JWTToken,
		http:     &http.Client{},
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL 返回 API 根地址
func (c *Client) BaseURL() string { return c.baseURL }

// requestConfig 单次请求配置
type requestConfig struct {
	params      url.Values
	body        any
	readTimeout time.Duration
}

// RequestOption 单次请求选项
type RequestOption func(*requestConfig)

// WithParams 设置查询参数
func WithParams(params url.Values) RequestOption {
	return func(rc *requestConfig) { rc.params = params }
}

// WithJSON 设置 JSON 请求体
func WithJSON(body any) RequestOption {
	return func(rc *requestConfig) { rc.body = body }
}

// WithReadTimeout 设置本次请求的读超时
func WithReadTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.readTimeout = d }
}

// Do 发送请求并把 JSON 响应解码到 out（out 为 nil 时丢弃响应体）
func (c *Client) Do(ctx context.Context, method, path string, out any, opts ...RequestOption) error {
	rc := &requestConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	if rc.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.readTimeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, path, rc)
	if err != nil {
		return errx.Wrap(errx.CodeTransport, err, "build request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Err(err, "请求 Protect API 失败", "method", method, "path", path)
		return errx.Wrap(errx.CodeTransport, err, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errx.Wrap(errx.CodeTransport, err, "read response body")
	}
	c.log.Debug("Protect API 响应", "method", method, "path", path, "status", resp.StatusCode, "elapsedMs", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		return errx.Wrap(errx.CodeHTTPStatus, se, "unexpected status")
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errx.Wrap(errx.CodeDecode, err, fmt.Sprintf("decode %s response", path))
	}
	return nil
}

// newRequest 构造 HTTP 请求并附加鉴权头
func (c *Client) newRequest(ctx context.Context, method, path string, rc *requestConfig) (*http.Request, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(rc.params) > 0 {
		endpoint += "?" + rc.params.Encode()
	}

	var reader io.Reader
	if rc.body != nil {
		raw, err := json.Marshal(rc.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	if c.jwtToken != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+c.jwtToken)
	}
	return req, nil
}
