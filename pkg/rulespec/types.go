// Package rulespec 定义 Protect 请求/响应及规则集的类型规范
package rulespec

import (
	"strings"
)

// Payload 待扫描的文本，input/output 至少提供一个
type Payload struct {
	Input  string `json:"input,omitempty"`  // 模型输入
	Output string `json:"output,omitempty"` // 模型输出
}

// Text 返回负载中用于展示的文本，优先 output
func (p Payload) Text() string {
	if p.Output != "" {
		return p.Output
	}
	return p.Input
}

// RuleOperator 规则比较运算符
type RuleOperator string

const (
	OperatorGt       RuleOperator = "gt"        // 大于
	OperatorLt       RuleOperator = "lt"        // 小于
	OperatorGte      RuleOperator = "gte"       // 大于等于
	OperatorLte      RuleOperator = "lte"       // 小于等于
	OperatorEq       RuleOperator = "eq"        // 等于
	OperatorNeq      RuleOperator = "neq"       // 不等于
	OperatorContains RuleOperator = "contains"  // 包含
	OperatorAll      RuleOperator = "all"       // 全部包含
	OperatorAny      RuleOperator = "any"       // 任一包含
	OperatorEmpty    RuleOperator = "empty"     // 为空
	OperatorNotEmpty RuleOperator = "not_empty" // 非空
)

var knownOperators = map[RuleOperator]struct{}{
	OperatorGt: {}, OperatorLt: {}, OperatorGte: {}, OperatorLte: {},
	OperatorEq: {}, OperatorNeq: {}, OperatorContains: {}, OperatorAll: {},
	OperatorAny: {}, OperatorEmpty: {}, OperatorNotEmpty: {},
}

// IsValid 判断运算符是否受支持
func (o RuleOperator) IsValid() bool {
	_, ok := knownOperators[o]
	return ok
}

// NeedsTarget 判断运算符是否需要目标值
func (o RuleOperator) NeedsTarget() bool {
	return o != OperatorEmpty && o != OperatorNotEmpty
}

// RuleMetric 规则指标标识，未知指标原样透传给服务端
type RuleMetric string

const (
	MetricContextAdherenceLuna RuleMetric = "context_adherence_luna"
	MetricInputPII             RuleMetric = "input_pii"
	MetricInputSexist          RuleMetric = "input_sexist"
	MetricInputTone            RuleMetric = "input_tone"
	MetricInputToxicity        RuleMetric = "input_toxicity"
	MetricPII                  RuleMetric = "pii"
	MetricPromptInjection      RuleMetric = "prompt_injection"
	MetricSexist               RuleMetric = "sexist"
	MetricTone                 RuleMetric = "tone"
	MetricToxicity             RuleMetric = "toxicity"
)

// KnownMetrics 返回当前已识别的指标列表
func KnownMetrics() []RuleMetric {
	return []RuleMetric{
		MetricContextAdherenceLuna, MetricInputPII, MetricInputSexist, MetricInputTone,
		MetricInputToxicity, MetricPII, MetricPromptInjection, MetricSexist, MetricTone, MetricToxicity,
	}
}

// IsKnown 判断指标是否为已识别指标
func (m RuleMetric) IsKnown() bool {
	for _, k := range KnownMetrics() {
		if k == m {
			return true
		}
	}
	return false
}

// Rule 单条规则：指标 + 运算符 + 目标值
type Rule struct {
	Metric      RuleMetric   `json:"metric"`                 // 指标
	Operator    RuleOperator `json:"operator"`               // 运算符
	TargetValue any          `json:"target_value,omitempty"` // 目标值 (number | string | []string)
}

// NewRule 创建规则
func NewRule(metric RuleMetric, op RuleOperator, target any) Rule {
	return Rule{Metric: metric, Operator: op, TargetValue: target}
}

// Ruleset 一组共同评估的规则，多个规则集按列表顺序作为优先级
type Ruleset struct {
	Rules       []Rule  `json:"rules"`
	Action      *Action `json:"action,omitempty"`
	Description string  `json:"description,omitempty"`
}

// NewRuleset 创建规则集，动作默认为 passthrough
func NewRuleset(rules ...Rule) Ruleset {
	if rules == nil {
		rules = []Rule{}
	}
	return Ruleset{Rules: rules, Action: NewPassthroughAction()}
}

// ExecutionStatus 调用执行状态（线上为大写）
type ExecutionStatus string

const (
	StatusTriggered    ExecutionStatus = "TRIGGERED"
	StatusNotTriggered ExecutionStatus = "NOT_TRIGGERED"
	StatusTimeout      ExecutionStatus = "TIMEOUT"
	StatusSuccess      ExecutionStatus = "SUCCESS"
	StatusError        ExecutionStatus = "ERROR"
	StatusPaused       ExecutionStatus = "PAUSED"
	StatusSkipped      ExecutionStatus = "SKIPPED"
)

// Is 不区分大小写比较状态
func (s ExecutionStatus) Is(other ExecutionStatus) bool {
	return strings.EqualFold(string(s), string(other))
}
