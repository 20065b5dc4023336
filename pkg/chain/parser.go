// Package chain 把 Protect 接入编排框架：下游链的解析适配器与可调用工具
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/tidwall/gjson"
)

// Runnable 下游可调用链
type Runnable interface {
	Invoke(ctx context.Context, input string) (string, error)
}

// RunnableFunc 函数适配为 Runnable
type RunnableFunc func(ctx context.Context, input string) (string, error)

// Invoke 实现 Runnable
func (f RunnableFunc) Invoke(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// Parser 根据 Protect 响应决定是否继续执行下游链。
// 响应为 TRIGGERED 且未设置 IgnoreTrigger 时直接返回响应文本（可能已被动作替换），
// 否则把文本交给 Chain 并返回其结果。
type Parser struct {
	Chain         Runnable
	IgnoreTrigger bool
	EchoOutput    bool
	Out           io.Writer // EchoOutput 的输出目标，默认 os.Stdout
}

// Parse 解析 JSON 形式的响应
func (p *Parser) Parse(ctx context.Context, raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", errx.New(errx.CodeDecode, "protect response is not valid JSON")
	}
	doc := gjson.Parse(raw)
	return p.parse(ctx, doc.Get("text").String(), rulespec.ExecutionStatus(doc.Get("status").String()))
}

// ParseResponse 解析结构化响应
func (p *Parser) ParseResponse(ctx context.Context, resp *rulespec.Response) (string, error) {
	if resp == nil {
		return "", errx.Invalid("protect response is nil")
	}
	return p.parse(ctx, resp.Text, resp.Status)
}

// ParseMap 解析 Tool.Run 返回的 map 形式响应
func (p *Parser) ParseMap(ctx context.Context, out map[string]any) (string, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return "", errx.Wrap(errx.CodeDecode, err, "encode protect response")
	}
	return p.Parse(ctx, string(raw))
}

func (p *Parser) parse(ctx context.Context, text string, status rulespec.ExecutionStatus) (string, error) {
	if p.EchoOutput {
		w := p.Out
		if w == nil {
			w = os.Stdout
		}
		fmt.Fprintf(w, "> Raw response: %s\n", text)
	}
	if status.Is(rulespec.StatusTriggered) && !p.IgnoreTrigger {
		return text, nil
	}
	if p.Chain == nil {
		return "", errx.Invalid("parser chain is required")
	}
	return p.Chain.Invoke(ctx, text)
}
