package chain

import (
	"context"
	"encoding/json"
	"time"

	"protect/pkg/domain"
	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

// 工具默认名称与描述
const (
	DefaultToolName        = "GalileoProtect"
	DefaultToolDescription = "Protect your LLM applications from harmful content using Galileo Protect. " +
		"This tool is a wrapper around Galileo's Protect API, can be used to scan text " +
		"for harmful content, and can be used to trigger actions based on the results. " +
		"The tool can be used synchronously or asynchronously, on the input text or output text, " +
		"and can be configured with a set of rulesets to evaluate on."
)

// Invoker 发起 Protect 调用，api.Service 满足该接口
type Invoker interface {
	Invoke(ctx context.Context, p domain.InvokeParams) (*rulespec.Response, error)
}

// ToolResult 异步运行结果
type ToolResult struct {
	Output map[string]any
	Err    error
}

// Tool 供编排框架调用的 Protect 工具
type Tool struct {
	Name                string
	Description         string
	PrioritizedRulesets []rulespec.Ruleset
	ProjectID           uuid.UUID
	StageName           string
	StageID             uuid.UUID
	Timeout             time.Duration
	Invoker             Invoker
}

// NewTool 创建带默认名称与描述的工具
func NewTool(inv Invoker) *Tool {
	return &Tool{
		Name:        DefaultToolName,
		Description: DefaultToolDescription,
		Invoker:     inv,
	}
}

// Run 同步运行，返回响应的 map 形式（含额外字段）
func (t *Tool) Run(ctx context.Context, input, output string) (map[string]any, error) {
	resp, err := t.invoke(ctx, input, output)
	if err != nil {
		return nil, err
	}
	out, err := resp.ToMap()
	if err != nil {
		return nil, errx.Wrap(errx.CodeDecode, err, "convert protect response")
	}
	return out, nil
}

// ARun 异步运行，通道恰好投递一个结果后关闭
func (t *Tool) ARun(ctx context.Context, input, output string) <-chan ToolResult {
	ch := make(chan ToolResult, 1)
	go func() {
		defer close(ch)
		out, err := t.Run(ctx, input, output)
		ch <- ToolResult{Output: out, Err: err}
	}()
	return ch
}

// RunJSON 同步运行，返回 JSON 字符串；tool 字段标记产生结果的工具名
func (t *Tool) RunJSON(ctx context.Context, input, output string) (string, error) {
	resp, err := t.invoke(ctx, input, output)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return "", errx.Wrap(errx.CodeDecode, err, "encode protect response")
	}
	if t.Name == "" {
		return string(raw), nil
	}
	out, err := sjson.SetBytes(raw, "tool", t.Name)
	if err != nil {
		return "", errx.Wrap(errx.CodeDecode, err, "annotate protect response")
	}
	return string(out), nil
}

func (t *Tool) invoke(ctx context.Context, input, output string) (*rulespec.Response, error) {
	if t.Invoker == nil {
		return nil, errx.Invalid("tool invoker is required")
	}
	return t.Invoker.Invoke(ctx, domain.InvokeParams{
		Payload:             rulespec.Payload{Input: input, Output: output},
		PrioritizedRulesets: t.PrioritizedRulesets,
		ProjectID:           t.ProjectID,
		StageName:           t.StageName,
		StageID:             t.StageID,
		Timeout:             t.Timeout,
	})
}
