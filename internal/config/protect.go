package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ProtectConfig 客户端持久化配置：连接信息与项目/阶段默认值。
// 同一实例在多个 goroutine 间共享写入时需调用方自行串行化。
type ProtectConfig struct {
	ConsoleURL string
	APIURL     string
	APIKey     string
	JWTToken   string

	ProjectID    uuid.UUID
	ProjectName  string
	StageID      uuid.UUID
	StageName    string
	StageVersion *int

	path string
}

// Option 显式参数，优先级最高
type Option func(*ProtectConfig)

func WithConsoleURL(u string) Option { return func(c *ProtectConfig) { c.ConsoleURL = u } }
func WithAPIURL(u string) Option { return func(c *ProtectConfig) { c.APIURL = u } }
func WithAPIKey(k string) Option { return func(c *ProtectConfig) { c.APIKey = k } }
func WithJWTToken(t string) Option { return func(c *ProtectConfig) { c.JWTToken = t } }
func WithProjectID(id uuid.UUID) Option { return func(c *ProtectConfig) { c.ProjectID = id } }
func WithProjectName(name string) Option { return func(c *ProtectConfig) { c.ProjectName = name } }
func WithStageID(id uuid.UUID) Option { return func(c *ProtectConfig) { c.StageID = id } }
func WithStageName(name string) Option { return func(c *ProtectConfig) { c.StageName = name } }
func WithPath(path string) Option { return func(c *ProtectConfig) { c.path = path } }
func WithStageVersion(v int) Option { return func(c *ProtectConfig) { c.StageVersion = &v } }

// DefaultProtectPath 返回默认配置文件路径
func DefaultProtectPath() (string, error) {
	if p := os.Getenv(EnvProtectConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ProtectConfigDir, ProtectConfigFilename), nil
}

// LoadProtect 按 文件 -> 环境变量 -> 显式参数 的顺序合并配置
func LoadProtect(opts ...Option) (*ProtectConfig, error) {
	explicit := &ProtectConfig{}
	for _, opt := range opts {
		opt(explicit)
	}

	path := explicit.path
	if path == "" {
		p, err := DefaultProtectPath()
		if err != nil {
			return nil, fmt.Errorf("定位配置文件失败: %w", err)
		}
		path = p
	}

	cfg, err := readProtectFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.merge(explicit)
	cfg.path = path
	return cfg, nil
}

// readProtectFile 读取配置文件，文件不存在时返回空配置
func readProtectFile(path string) (*ProtectConfig, error) {
	cfg := &ProtectConfig{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("配置文件 %s 不是合法 JSON", path)
	}

	doc := gjson.ParseBytes(data)
	cfg.ConsoleURL = doc.Get("console_url").String()
	cfg.APIURL = doc.Get("api_url").String()
	cfg.APIKey = doc.Get("api_key").String()
	cfg.JWTToken = doc.Get("jwt_token").String()
	cfg.ProjectName = doc.Get("project_name").String()
	cfg.StageName = doc.Get("stage_name").String()
	if cfg.ProjectID, err = parseOptionalID(doc.Get("project_id")); err != nil {
		return nil, fmt.Errorf("project_id: %w", err)
	}
	if cfg.StageID, err = parseOptionalID(doc.Get("stage_id")); err != nil {
		return nil, fmt.Errorf("stage_id: %w", err)
	}
	if v := doc.Get("stage_version"); v.Exists() && v.Type == gjson.Number {
		n := int(v.Int())
		cfg.StageVersion = &n
	}
	return cfg, nil
}

func parseOptionalID(r gjson.Result) (uuid.UUID, error) {
	if !r.Exists() || r.Type == gjson.Null || r.String() == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(r.String())
}

// applyEnv 环境变量覆盖文件中的连接信息
func (c *ProtectConfig) applyEnv() {
	if v := os.Getenv(EnvConsoleURL); v != "" {
		c.ConsoleURL = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvJWTToken); v != "" {
		c.JWTToken = v
	}
}

// merge 非零值覆盖
func (c *ProtectConfig) merge(o *ProtectConfig) {
	if o.ConsoleURL != "" {
		c.ConsoleURL = o.ConsoleURL
	}
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.JWTToken != "" {
		c.JWTToken = o.JWTToken
	}
	if o.ProjectID != uuid.Nil {
		c.ProjectID = o.ProjectID
	}
	if o.ProjectName != "" {
		c.ProjectName = o.ProjectName
	}
	if o.StageID != uuid.Nil {
		c.StageID = o.StageID
	}
	if o.StageName != "" {
		c.StageName = o.StageName
	}
	if o.StageVersion != nil {
		c.StageVersion = o.StageVersion
	}
}

// Path 配置文件路径
func (c *ProtectConfig) Path() string { return c.path }

// APIBaseURL 返回 API 地址；未显式配置时由 console 地址推导（console. -> api.）
func (c *ProtectConfig) APIBaseURL() (string, error) {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/"), nil
	}
	if c.ConsoleURL == "" {
		return "", errors.New("console URL or API URL must be configured")
	}
	u, err := url.Parse(c.ConsoleURL)
	if err != nil {
		return "", fmt.Errorf("无效的 console URL: %w", err)
	}
	if strings.HasPrefix(u.Host, "console.") {
		u.Host = "api." + strings.TrimPrefix(u.Host, "console.")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Reset 只清空本模块维护的项目/阶段字段，连接信息保持不变
func (c *ProtectConfig) Reset() {
	c.ProjectID = uuid.Nil
	c.ProjectName = ""
	c.StageID = uuid.Nil
	c.StageName = ""
	c.StageVersion = nil
}

// Write 将配置写回磁盘，保留文件中的未知字段
func (c *ProtectConfig) Write() error {
	if c.path == "" {
		return errors.New("config path is empty")
	}
	doc := "{}"
	if data, err := os.ReadFile(c.path); err == nil && gjson.ValidBytes(data) {
		doc = string(data)
	}

	var err error
	set := func(key string, value any, keep bool) {
		if err != nil {
			return
		}
		if keep {
			doc, err = sjson.Set(doc, key, value)
		} else {
			doc, err = sjson.Delete(doc, key)
		}
	}
	set("console_url", c.ConsoleURL, c.ConsoleURL != "")
	set("api_url", c.APIURL, c.APIURL != "")
	set("api_key", c.APIKey, c.APIKey != "")
	set("jwt_token", c.JWTToken, c.JWTToken != "")
	set("project_id", c.ProjectID.String(), c.ProjectID != uuid.Nil)
	set("project_name", c.ProjectName, c.ProjectName != "")
	set("stage_id", c.StageID.String(), c.StageID != uuid.Nil)
	set("stage_name", c.StageName, c.StageName != "")
	if c.StageVersion != nil {
		set("stage_version", *c.StageVersion, true)
	} else {
		set("stage_version", nil, false)
	}
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.path, []byte(doc), 0o600)
}
