package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"protect/internal/config"
	"protect/internal/logger"

	"github.com/tidwall/gjson"
)

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, "debug")

	l.With("stageID", "s1").Info("调用完成", "status", "TRIGGERED")

	line := strings.TrimSpace(buf.String())
	if !gjson.Valid(line) {
		t.Fatalf("日志不是合法 JSON: %s", line)
	}
	doc := gjson.Parse(line)
	if doc.Get("message").String() != "调用完成" {
		t.Errorf("message 字段不符: %s", line)
	}
	if doc.Get("stageID").String() != "s1" || doc.Get("status").String() != "TRIGGERED" {
		t.Errorf("附加字段缺失: %s", line)
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, "error")

	l.Debug("debug")
	l.Info("info")
	if buf.Len() != 0 {
		t.Errorf("低于 error 的日志不应输出: %s", buf.String())
	}

	l.Err(errors.New("boom"), "failed")
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("错误日志缺少 error 字段: %s", buf.String())
	}
}

func TestNew_NoWriters(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Log.Writer = nil
	l := logger.New(cfg)
	// 空日志不应 panic
	l.Info("noop")
	l.With("k", "v").Warn("noop")
}

func TestNew_NilConfig(t *testing.T) {
	l := logger.New(nil)
	l.Error("noop")
}
