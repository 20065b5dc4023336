package config

import "time"

// 默认值
const (
	ProtectConfigFilename = "protect-config.json" // 本地持久化配置文件名
	ProtectConfigDir      = ".galileo"            // 位于用户主目录下

	DefaultTimeout = 10 * time.Second // 调用默认超时
	TimeoutMargin  = 5 * time.Second  // 读超时在调用超时基础上的余量
)

// 环境变量
const (
	EnvConsoleURL    = "GALILEO_CONSOLE_URL"
	EnvAPIURL        = "GALILEO_API_URL"
	EnvAPIKey        = "GALILEO_API_KEY"
	EnvJWTToken      = "GALILEO_JWT_TOKEN"
	EnvProtectConfig = "GALILEO_PROTECT_CONFIG" // 覆盖配置文件路径
)
