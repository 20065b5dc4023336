// Package service 实现 Protect 客户端的各项操作：调用、项目管理、阶段管理
package service

import (
	"net/http"
	"sync"
	"time"

	"protect/internal/config"
	"protect/internal/logger"
	"protect/internal/transport"
	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
)

// API 路由
const (
	routeInvoke      = "protect/invoke"
	routeHealthcheck = "healthcheck"
	routeProjects    = "projects"
)

func routeProject(projectID uuid.UUID) string {
	return routeProjects + "/" + projectID.String()
}

func routeStages(projectID uuid.UUID) string {
	return routeProject(projectID) + "/stages"
}

func routeStage(projectID, stageID uuid.UUID) string {
	return routeStages(projectID) + "/" + stageID.String()
}

// Recorder 接收每次 invoke 的结果，实现方不得阻塞
type Recorder interface {
	RecordInvocation(req *rulespec.Request, resp *rulespec.Response, err error, started time.Time)
}

// Option 服务选项
type Option func(*svc)

// WithLogger 指定日志记录器
func WithLogger(l logger.Logger) Option {
	return func(s *svc) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder 挂载调用历史记录器
func WithRecorder(r Recorder) Option {
	return func(s *svc) { s.rec = r }
}

// WithHTTPClient 指定底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(s *svc) { s.httpClient = hc }
}

type svc struct {
	// mu 保护 cfg 的读取与写回
	mu         sync.Mutex
	cfg        *config.ProtectConfig
	client     *transport.Client
	rec        Recorder
	httpClient *http.Client
	log        logger.Logger
}

// New 根据注入的配置创建服务层实例
func New(cfg *config.ProtectConfig, opts ...Option) (*svc, error) {
	if cfg == nil {
		return nil, errx.New(errx.CodeConfig, "protect config is required")
	}
	s := &svc{cfg: cfg, log: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	topts := []transport.Option{transport.WithLogger(s.log)}
	if s.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(s.httpClient))
	}
	client, err := transport.New(cfg, topts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// Config 返回服务持有的配置
func (s *svc) Config() *config.ProtectConfig {
	return s.cfg
}

// snapshot 在锁内复制当前配置的项目/阶段默认值
func (s *svc) snapshot() config.ProtectConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cfg
}

// persist 修改配置并写回磁盘
func (s *svc) persist(update func(c *config.ProtectConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(s.cfg)
	if err := s.cfg.Write(); err != nil {
		s.log.Err(err, "写入配置失败", "path", s.cfg.Path())
		return errx.Wrap(errx.CodeConfig, err, "write protect config")
	}
	return nil
}

// orID 显式参数优先，其次为配置默认值
func orID(explicit, fallback uuid.UUID) uuid.UUID {
	if explicit != uuid.Nil {
		return explicit
	}
	return fallback
}

func orString(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	return fallback
}
