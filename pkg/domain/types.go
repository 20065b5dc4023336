package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectType 项目类型
type ProjectType string

const (
	ProjectTypeProtect ProjectType = "protect"
)

// Project 服务端项目，拥有若干阶段
type Project struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Type      ProjectType `json:"type"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// CreateProjectRequest 创建项目请求体
type CreateProjectRequest struct {
	Name string      `json:"name"`
	Type ProjectType `json:"type"`
}

// tsLayout 时间戳名称格式
const tsLayout = "2006-01-02 15:04:05.000"

// TimestampName 生成带时间戳的默认名称，如 "stage 2024-05-01 10:11:12.000"
func TimestampName(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, time.Now().Format(tsLayout))
}
