package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置文件结构体（日志与本地调用历史）
type Config struct {
	Version string     `yaml:"version"`
	Log     LogConfig  `yaml:"log"`
	History HistConfig `yaml:"history"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `yaml:"level"`
	Writer []string `yaml:"writer"`
	File   string   `yaml:"file"` // 为空时使用平台默认路径
}

// HistConfig 调用历史（sqlite）配置
type HistConfig struct {
	Enabled bool   `yaml:"enabled"`
	Db      string `yaml:"db"`
	Prefix  string `yaml:"prefix"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "0.9.0",
		Log: LogConfig{
			Level:  "info",
			Writer: []string{"console"},
		},
		History: HistConfig{
			Enabled: false,
			Db:      "history.db",
			Prefix:  "protect_",
		},
	}
}

// Load 从 YAML 文件加载配置，缺省字段保留默认值；path 为空时直接返回默认配置
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return cfg, nil
}
