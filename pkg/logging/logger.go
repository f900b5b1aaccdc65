package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
)

// String 返回日志级别字符串
func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "ERROR"
	case LogWarn:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogError:
		return zapcore.ErrorLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel 解析日志级别字符串
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogError, nil
	case "warn", "warning":
		return LogWarn, nil
	case "", "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	default:
		return LogInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Logger 日志接口
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

// ZapLogger 基于 zap 的日志实现
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// New 按格式与级别创建日志，format 为 json 或 console
func New(level LogLevel, format string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.Sampling = nil
	switch format {
	case "", "text", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &ZapLogger{sugar: l.Sugar(), level: cfg.Level}, nil
}

// NewFromCore 用已有的 zapcore.Core 创建日志（测试中配合 observer 使用）
func NewFromCore(core zapcore.Core, level LogLevel) *ZapLogger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	filtered := &levelCore{Core: core, level: atom}
	return &ZapLogger{sugar: zap.New(filtered).Sugar(), level: atom}
}

// Debug 输出 DEBUG 级别日志
func (l *ZapLogger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info 输出 INFO 级别日志
func (l *ZapLogger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn 输出 WARN 级别日志
func (l *ZapLogger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error 输出 ERROR 级别日志
func (l *ZapLogger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// SetLevel 设置日志级别
func (l *ZapLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// GetLevel 获取日志级别
func (l *ZapLogger) GetLevel() LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return LogDebug
	case zapcore.WarnLevel:
		return LogWarn
	case zapcore.InfoLevel:
		return LogInfo
	default:
		return LogError
	}
}

// Sync 刷新缓冲
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// levelCore 给外部 core 加上可调整的级别
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// NoOpLogger 空日志实现（用于禁用日志）
type NoOpLogger struct{}

// NewNop 创建空日志
func NewNop() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(format string, args ...interface{}) {}
func (l *NoOpLogger) Info(format string, args ...interface{})  {}
func (l *NoOpLogger) Warn(format string, args ...interface{})  {}
func (l *NoOpLogger) Error(format string, args ...interface{}) {}
func (l *NoOpLogger) SetLevel(level LogLevel)                  {}
func (l *NoOpLogger) GetLevel() LogLevel                       { return LogInfo }
