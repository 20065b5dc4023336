package service

import (
	"context"
	"net/http"
	"time"

	"protect/internal/config"
	"protect/internal/transport"
	"protect/pkg/domain"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
)

// Invoke 同步调用 Protect，不修改配置
func (s *svc) Invoke(ctx context.Context, p domain.InvokeParams) (*rulespec.Response, error) {
	req := s.buildRequest(p)
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	req.Timeout = timeout.Seconds()

	l := s.log.With("project", req.ProjectID, "stage", req.StageID, "stageName", req.StageName)
	l.Debug("调用 Protect", "rulesets", len(req.PrioritizedRulesets), "timeout", req.Timeout)

	start := time.Now()
	var resp rulespec.Response
	err := s.client.Do(ctx, http.MethodPost, routeInvoke, &resp,
		transport.WithJSON(req),
		transport.WithReadTimeout(timeout+config.TimeoutMargin),
	)
	if err != nil {
		l.Err(err, "Protect 调用失败")
		s.record(req, nil, err, start)
		return nil, err
	}

	l.Debug("Protect 调用完成", "status", resp.Status, "elapsedMs", time.Since(start).Milliseconds())
	s.record(req, &resp, nil, start)
	return &resp, nil
}

// AInvoke 异步调用，通道恰好投递一个结果后关闭
func (s *svc) AInvoke(ctx context.Context, p domain.InvokeParams) <-chan domain.InvokeResult {
	ch := make(chan domain.InvokeResult, 1)
	go func() {
		defer close(ch)
		resp, err := s.Invoke(ctx, p)
		ch <- domain.InvokeResult{Response: resp, Err: err}
	}()
	return ch
}

// buildRequest 按字段合并显式参数与配置默认值
func (s *svc) buildRequest(p domain.InvokeParams) *rulespec.Request {
	cfg := s.snapshot()

	rulesets := p.PrioritizedRulesets
	if rulesets == nil {
		rulesets = []rulespec.Ruleset{}
	}
	req := &rulespec.Request{
		Payload:             p.Payload,
		PrioritizedRulesets: rulesets,
		ProjectName:         orString(p.ProjectName, cfg.ProjectName),
		StageName:           orString(p.StageName, cfg.StageName),
		Metadata:            p.Metadata,
		Headers:             p.Headers,
	}
	if id := orID(p.ProjectID, cfg.ProjectID); id != uuid.Nil {
		req.ProjectID = &id
	}
	if id := orID(p.StageID, cfg.StageID); id != uuid.Nil {
		req.StageID = &id
	}
	return req
}

func (s *svc) record(req *rulespec.Request, resp *rulespec.Response, err error, start time.Time) {
	if s.rec == nil {
		return
	}
	s.rec.RecordInvocation(req, resp, err, start)
}
