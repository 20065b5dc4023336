package audit

import (
	"encoding/json"
	"strings"
	"time"

	"protect/internal/logger"
	"protect/internal/storage/model"
	"protect/pkg/rulespec"
)

// Sink 调用记录落地端
type Sink interface {
	Record(rec *model.InvocationRecord)
}

// Auditor 把 invoke 的结果转换为历史记录并交给 Sink
type Auditor struct {
	enabled bool
	sink    Sink
	log     logger.Logger
}

// New 创建审计员，sink 为 nil 时只打日志
func New(sink Sink, l logger.Logger) *Auditor {
	if l == nil {
		l = logger.NewNop()
	}
	return &Auditor{
		enabled: true,
		sink:    sink,
		log:     l,
	}
}

// SetEnabled 设置是否启用审计
func (a *Auditor) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// RecordInvocation 记录一次调用；err 非空时状态记为 ERROR
func (a *Auditor) RecordInvocation(req *rulespec.Request, resp *rulespec.Response, err error, started time.Time) {
	if !a.enabled || req == nil {
		return
	}

	rec := &model.InvocationRecord{
		ProjectName: req.ProjectName,
		StageName:   req.StageName,
		InputText:   req.Payload.Input,
		OutputText:  req.Payload.Output,
		ElapsedMs:   time.Since(started).Milliseconds(),
		Timestamp:   started.UnixMilli(),
	}
	if req.ProjectID != nil {
		rec.ProjectID = req.ProjectID.String()
	}
	if req.StageID != nil {
		rec.StageID = req.StageID.String()
	}
	if raw, mErr := json.Marshal(req.PrioritizedRulesets); mErr == nil {
		rec.RulesetsJSON = string(raw)
	}

	switch {
	case err != nil:
		rec.Status = string(rulespec.StatusError)
		rec.Error = err.Error()
	case resp != nil:
		// 状态统一存大写；服务端未返回状态时保持为空
		rec.Status = strings.ToUpper(string(resp.Status))
		rec.ResponseText = resp.Text
		if resp.TraceMetadata != nil {
			rec.TraceID = resp.TraceMetadata.ID
			rec.ExecutionTime = resp.TraceMetadata.ExecutionTime
		}
		if raw, mErr := json.Marshal(resp); mErr == nil {
			rec.ResponseJSON = string(raw)
		}
	}

	a.log.Debug("[Auditor] 记录调用", "project", rec.ProjectID, "stage", rec.StageID, "status", rec.Status, "elapsedMs", rec.ElapsedMs)
	if a.sink == nil {
		return
	}
	a.sink.Record(rec)
}
