package rulespec

import (
	"encoding/json"
	"fmt"
)

// ActionType 动作类型
type ActionType string

const (
	ActionOverride    ActionType = "OVERRIDE"    // 替换输出
	ActionPassthrough ActionType = "PASSTHROUGH" // 不做处理
)

// Action 规则集触发后执行的动作（按 type 区分的变体）
type Action struct {
	Type    ActionType `json:"type"`
	Choices []string   `json:"choices,omitempty"` // 仅 OVERRIDE
}

// NewOverrideAction 创建替换动作
func NewOverrideAction(choices ...string) *Action {
	return &Action{Type: ActionOverride, Choices: choices}
}

// NewPassthroughAction 创建透传动作
func NewPassthroughAction() *Action {
	return &Action{Type: ActionPassthrough}
}

// IsOverride 是否为替换动作
func (a *Action) IsOverride() bool { return a != nil && a.Type == ActionOverride }

// MarshalJSON 透传动作不输出 choices
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case ActionOverride:
		return json.Marshal(struct {
			Type    ActionType `json:"type"`
			Choices []string   `json:"choices"`
		}{a.Type, a.Choices})
	case ActionPassthrough, "":
		return json.Marshal(struct {
			Type ActionType `json:"type"`
		}{ActionPassthrough})
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// UnmarshalJSON 缺省 type 视为 PASSTHROUGH
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    ActionType `json:"type"`
		Choices []string   `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case ActionOverride:
		a.Type = ActionOverride
		a.Choices = raw.Choices
	case ActionPassthrough, "":
		a.Type = ActionPassthrough
		a.Choices = nil
	default:
		return fmt.Errorf("unknown action type %q", raw.Type)
	}
	return nil
}
