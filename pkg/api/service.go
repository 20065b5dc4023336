package api

import (
	"context"

	"protect/internal/config"
	"protect/internal/service"
	"protect/pkg/chain"
	"protect/pkg/domain"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
)

// ProtectConfig 客户端持久化配置
type ProtectConfig = config.ProtectConfig

// ConfigOption 显式配置参数
type ConfigOption = config.Option

// Option 服务选项
type Option = service.Option

// Recorder 调用历史记录器
type Recorder = service.Recorder

// 服务选项
var (
	WithLogger     = service.WithLogger
	WithRecorder   = service.WithRecorder
	WithHTTPClient = service.WithHTTPClient
)

// LoadConfig 按 文件 -> 环境变量 -> 显式参数 合并加载配置
func LoadConfig(opts ...ConfigOption) (*ProtectConfig, error) {
	return config.LoadProtect(opts...)
}

// Service 服务接口
type Service interface {
	// Invoke 同步调用 Protect
	Invoke(ctx context.Context, p domain.InvokeParams) (*rulespec.Response, error)

	// AInvoke 异步调用，通道投递一个结果后关闭
	AInvoke(ctx context.Context, p domain.InvokeParams) <-chan domain.InvokeResult

	// CreateProject 创建项目
	CreateProject(ctx context.Context, name string) (*domain.Project, error)

	// GetProjects 列出项目
	GetProjects(ctx context.Context) ([]domain.Project, error)

	// GetProject 按 ID 或名称获取项目
	GetProject(ctx context.Context, id uuid.UUID, name string, raiseIfMissing bool) (*domain.Project, error)

	// CreateStage 创建阶段
	CreateStage(ctx context.Context, p domain.CreateStageParams) (*rulespec.StageResponse, error)

	// GetStage 获取阶段
	GetStage(ctx context.Context, ref domain.StageRef) (*rulespec.StageResponse, error)

	// UpdateStage 更新阶段规则集
	UpdateStage(ctx context.Context, ref domain.StageRef, rulesets []rulespec.Ruleset) (*rulespec.StageResponse, error)

	// PauseStage 暂停阶段
	PauseStage(ctx context.Context, projectID, stageID uuid.UUID) error

	// ResumeStage 恢复阶段
	ResumeStage(ctx context.Context, projectID, stageID uuid.UUID) error

	// Healthcheck 健康检查
	Healthcheck(ctx context.Context) (map[string]any, error)

	// Config 服务持有的配置
	Config() *ProtectConfig
}

var _ chain.Invoker = Service(nil)

// NewService 创建并返回服务接口实现
func NewService(cfg *ProtectConfig, opts ...Option) (Service, error) {
	s, err := service.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
