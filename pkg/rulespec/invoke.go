package rulespec

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Request 调用 Protect 的请求体
type Request struct {
	Payload             Payload           `json:"payload"`
	PrioritizedRulesets []Ruleset         `json:"prioritized_rulesets"`
	ProjectID           *uuid.UUID        `json:"project_id,omitempty"`
	ProjectName         string            `json:"project_name,omitempty"`
	StageID             *uuid.UUID        `json:"stage_id,omitempty"`
	StageName           string            `json:"stage_name,omitempty"`
	Timeout             float64           `json:"timeout"` // 秒
	Metadata            map[string]string `json:"metadata,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"`
}

// UnmarshalJSON 兼容旧字段名 rulesets
func (r *Request) UnmarshalJSON(data []byte) error {
	type alias Request
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.PrioritizedRulesets == nil {
		if legacy := gjson.GetBytes(data, "rulesets"); legacy.IsArray() {
			if err := json.Unmarshal([]byte(legacy.Raw), &a.PrioritizedRulesets); err != nil {
				return err
			}
		}
	}
	*r = Request(a)
	return nil
}

// TraceMetadata 服务端追踪信息
type TraceMetadata struct {
	ID            string  `json:"id,omitempty"`
	ReceivedAt    int64   `json:"received_at,omitempty"`
	ResponseAt    int64   `json:"response_at,omitempty"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
}

// Response Protect 调用结果，未识别字段保存在 Extra 中
type Response struct {
	Text          string                     `json:"text"`
	Status        ExecutionStatus            `json:"status,omitempty"`
	TraceMetadata *TraceMetadata             `json:"trace_metadata,omitempty"`
	Extra         map[string]json.RawMessage `json:"-"`
}

var responseFields = map[string]struct{}{"text": {}, "status": {}, "trace_metadata": {}}

// UnmarshalJSON 解析已知字段并收集额外字段。
// trace_metadata 按字段宽松读取，非对象时原样保存在 Extra 中。
func (r *Response) UnmarshalJSON(data []byte) error {
	type alias Response
	var a struct {
		alias
		TraceMetadata json.RawMessage `json:"trace_metadata"`
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	out := Response(a.alias)

	doc := gjson.ParseBytes(data)
	doc.ForEach(func(key, value gjson.Result) bool {
		if _, known := responseFields[key.String()]; known {
			return true
		}
		out.setExtra(key.String(), value.Raw)
		return true
	})

	switch tm := doc.Get("trace_metadata"); {
	case tm.IsObject():
		out.TraceMetadata = parseTraceMetadata(tm)
	case tm.Exists() && tm.Type != gjson.Null:
		out.setExtra("trace_metadata", tm.Raw)
	}
	*r = out
	return nil
}

func (r *Response) setExtra(key, raw string) {
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage)
	}
	r.Extra[key] = json.RawMessage(raw)
}

// parseTraceMetadata 数字字段接受浮点与字符串写法
func parseTraceMetadata(tm gjson.Result) *TraceMetadata {
	return &TraceMetadata{
		ID:            tm.Get("id").String(),
		ReceivedAt:    tm.Get("received_at").Int(),
		ResponseAt:    tm.Get("response_at").Int(),
		ExecutionTime: tm.Get("execution_time").Float(),
	}
}

// MarshalJSON 输出已知字段并合并额外字段
func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	out, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := responseFields[k]; known && (k != "trace_metadata" || r.TraceMetadata != nil) {
			continue
		}
		out, err = sjson.SetRawBytes(out, gjson.Escape(k), v)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IsTriggered 是否命中规则
func (r *Response) IsTriggered() bool {
	return r != nil && r.Status.Is(StatusTriggered)
}

// ToMap 转换为通用 map（供编排框架使用）
func (r *Response) ToMap() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
