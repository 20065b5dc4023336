package domain

import (
	"time"

	"protect/pkg/rulespec"

	"github.com/google/uuid"
)

// InvokeParams invoke 调用参数；零值字段回落到配置中的默认值
type InvokeParams struct {
	Payload             rulespec.Payload
	PrioritizedRulesets []rulespec.Ruleset
	ProjectID           uuid.UUID
	ProjectName         string
	StageID             uuid.UUID
	StageName           string
	Timeout             time.Duration // 0 表示默认 10s
	Metadata            map[string]string
	Headers             map[string]string
}

// InvokeResult 异步调用结果
type InvokeResult struct {
	Response *rulespec.Response
	Err      error
}

// CreateStageParams 创建阶段参数
type CreateStageParams struct {
	ProjectID           uuid.UUID
	Name                string // 为空时生成时间戳名称
	Description         string
	Pause               bool
	Type                rulespec.StageType // 为空时为 local
	PrioritizedRulesets []rulespec.Ruleset
	Action              *rulespec.Action
}

// StageRef 定位阶段所需的标识，零值字段回落到配置
type StageRef struct {
	ProjectID   uuid.UUID
	ProjectName string
	StageID     uuid.UUID
	StageName   string
}
