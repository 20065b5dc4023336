package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// parseID 空字符串返回 uuid.Nil
func parseID(flag, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errx.Invalid(fmt.Sprintf("--%s: %v", flag, err))
	}
	return id, nil
}

// readRulesets 读取规则集文件，"-" 表示标准输入。
// 文件可以是规则集数组，也可以是带 prioritized_rulesets 字段的对象。
func readRulesets(path string, stdin io.Reader) ([]rulespec.Ruleset, error) {
	if path == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read rulesets: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errx.Invalid("rulesets file is not valid JSON")
	}

	raw := gjson.ParseBytes(data)
	if raw.IsObject() {
		raw = raw.Get("prioritized_rulesets")
	}
	if !raw.IsArray() {
		return nil, errx.Invalid("rulesets file must contain a JSON array of rulesets")
	}

	var rulesets []rulespec.Ruleset
	if err := json.Unmarshal([]byte(raw.Raw), &rulesets); err != nil {
		return nil, errx.Invalid(fmt.Sprintf("decode rulesets: %v", err))
	}
	if err := rulespec.ValidateRulesets(rulesets); err != nil {
		return nil, errx.Invalid(err.Error())
	}
	return rulesets, nil
}
