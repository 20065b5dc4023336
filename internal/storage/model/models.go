package model

import (
	"time"
)

// InvocationRecord 一次 invoke 调用的本地历史记录
type InvocationRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TraceID       string    `gorm:"index" json:"traceId"`            // 服务端 trace ID，失败调用为空
	ProjectID     string    `gorm:"index" json:"projectId"`          // 解析后的项目 ID
	ProjectName   string    `json:"projectName"`                     // 解析后的项目名称
	StageID       string    `gorm:"index" json:"stageId"`            // 解析后的阶段 ID
	StageName     string    `json:"stageName"`                       // 解析后的阶段名称
	Status        string    `gorm:"index" json:"status"`             // 执行状态（大写），调用失败时为 ERROR
	InputText     string    `gorm:"type:text" json:"inputText"`      // payload.input
	OutputText    string    `gorm:"type:text" json:"outputText"`     // payload.output
	ResponseText  string    `gorm:"type:text" json:"responseText"`   // 返回文本
	RulesetsJSON  string    `gorm:"type:text" json:"rulesetsJson"`   // 请求规则集 JSON
	ResponseJSON  string    `gorm:"type:text" json:"responseJson"`   // 完整响应 JSON（含未知字段）
	Error         string    `gorm:"type:text" json:"error"`          // 调用错误
	ExecutionTime float64   `json:"executionTime"`                   // 服务端执行耗时（秒）
	ElapsedMs     int64     `json:"elapsedMs"`                       // 客户端观测耗时
	Timestamp     int64     `gorm:"index" json:"timestamp"`          // 调用开始时间（毫秒）
	CreatedAt     time.Time `json:"createdAt"`
}
