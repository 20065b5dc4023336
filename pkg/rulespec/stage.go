package rulespec

import "github.com/google/uuid"

// StageType 阶段类型
type StageType string

const (
	StageLocal   StageType = "local"   // 调用方每次传入规则集
	StageCentral StageType = "central" // 规则集存储在服务端并带版本
)

// Stage 项目下的阶段定义
type Stage struct {
	Name                string    `json:"name"`
	ProjectID           uuid.UUID `json:"project_id"`
	Description         string    `json:"description,omitempty"`
	Paused              bool      `json:"paused"`
	Type                StageType `json:"type"`
	PrioritizedRulesets []Ruleset `json:"prioritized_rulesets"`
	Action              *Action   `json:"action,omitempty"`         // 旧版单动作阶段
	ActionEnabled       *bool     `json:"action_enabled,omitempty"` // 旧版单动作阶段
}

// StageResponse 服务端返回的阶段，central 阶段带版本号
type StageResponse struct {
	Stage
	ID      uuid.UUID `json:"id"`
	Version *int      `json:"version,omitempty"`
}

// RulesetsUpdate 更新 central 阶段规则集的请求体
type RulesetsUpdate struct {
	PrioritizedRulesets []Ruleset `json:"prioritized_rulesets"`
}
