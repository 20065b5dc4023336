package rulespec

import (
	"errors"
	"fmt"
)

// Validate 校验负载至少包含 input 或 output
func (p Payload) Validate() error {
	if p.Input == "" && p.Output == "" {
		return errors.New("payload must contain input or output")
	}
	return nil
}

// Validate 校验单条规则
func (r Rule) Validate() error {
	if r.Metric == "" {
		return errors.New("rule metric is required")
	}
	if !r.Operator.IsValid() {
		return fmt.Errorf("unsupported rule operator %q", r.Operator)
	}
	if r.Operator.NeedsTarget() && r.TargetValue == nil {
		return fmt.Errorf("operator %q requires a target value", r.Operator)
	}
	return nil
}

// Validate 校验规则集
func (rs Ruleset) Validate() error {
	for i, r := range rs.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if rs.Action.IsOverride() && len(rs.Action.Choices) == 0 {
		return errors.New("override action requires at least one choice")
	}
	return nil
}

// ValidateRulesets 按优先级顺序校验规则集列表
func ValidateRulesets(rulesets []Ruleset) error {
	for i, rs := range rulesets {
		if err := rs.Validate(); err != nil {
			return fmt.Errorf("ruleset %d: %w", i, err)
		}
	}
	return nil
}
