package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"protect/internal/logger"

	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

// DefaultSlowThreshold 超过该耗时的 SQL 记为慢查询
const DefaultSlowThreshold = 200 * time.Millisecond

// SQLLogger 把调用历史库的 gorm 日志转发到项目日志。
// 历史写入在后台进行，默认只输出慢查询与错误。
type SQLLogger struct {
	log           logger.Logger
	level         glog.LogLevel
	slowThreshold time.Duration
}

// NewLogger 创建 gorm 日志适配器
func NewLogger(l logger.Logger) *SQLLogger {
	if l == nil {
		l = logger.NewNop()
	}
	return &SQLLogger{
		log:           l.With("component", "history"),
		level:         glog.Warn,
		slowThreshold: DefaultSlowThreshold,
	}
}

// WithSlowThreshold 返回使用新慢查询阈值的副本
func (l *SQLLogger) WithSlowThreshold(d time.Duration) *SQLLogger {
	cp := *l
	cp.slowThreshold = d
	return &cp
}

// LogMode 实现 glog.Interface
func (l *SQLLogger) LogMode(level glog.LogLevel) glog.Interface {
	cp := *l
	cp.level = level
	return &cp
}

// gorm 传入的是 printf 风格参数
func (l *SQLLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= glog.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= glog.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= glog.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace 记录单条 SQL；未找到记录不算错误
func (l *SQLLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= glog.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= glog.Error:
		sql, rows := fc()
		l.log.Err(err, "历史库 SQL 失败", "sql", sql, "rows", rows, "elapsedMs", elapsed.Milliseconds())
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= glog.Warn:
		sql, rows := fc()
		l.log.Warn("历史库慢查询", "sql", sql, "rows", rows, "elapsedMs", elapsed.Milliseconds(), "threshold", l.slowThreshold.String())
	case l.level >= glog.Info:
		sql, rows := fc()
		l.log.Debug("历史库 SQL", "sql", sql, "rows", rows, "elapsedMs", elapsed.Milliseconds())
	}
}
