// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

type ctxKey struct{}

// NewContext 返回携带运行编号的上下文
func NewContext(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, runID)
}

// RunID 返回上下文中的运行编号
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(ctxKey{}).(string)
	return runID
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartRun 记录排班开始
func (l *SchedulerLogger) StartRun(runID string, persons, cells, population int) {
	l.base.Info().
		Str("run_id", runID).
		Int("persons", persons).
		Int("cells", cells).
		Int("population", population).
		Msg("开始生成排班")
}

// PreAssigned 记录 R1 预排结果
func (l *SchedulerLogger) PreAssigned(runID string, placed int, unplaced []string) {
	ev := l.base.Info()
	if len(unplaced) > 0 {
		ev = l.base.Warn()
	}
	ev.Str("run_id", runID).
		Int("placed", placed).
		Strs("unplaced", unplaced).
		Msg("R1 预排完成")
}

// Generation 记录一代搜索结果
func (l *SchedulerLogger) Generation(runID string, gen int, best float64, hard int) {
	l.base.Debug().
		Str("run_id", runID).
		Int("generation", gen).
		Float64("best_fitness", best).
		Int("hard_violations", hard).
		Msg("代际完成")
}

// Stopped 记录搜索终止原因
func (l *SchedulerLogger) Stopped(runID, reason string, gen int) {
	l.base.Info().
		Str("run_id", runID).
		Str("reason", reason).
		Int("generation", gen).
		Msg("搜索终止")
}

// RunComplete 记录排班完成
func (l *SchedulerLogger) RunComplete(runID string, duration time.Duration, fitness float64, hard, soft int) {
	ev := l.base.Info()
	if hard > 0 {
		ev = l.base.Warn()
	}
	ev.Str("run_id", runID).
		Dur("duration", duration).
		Float64("fitness", fitness).
		Int("hard_violations", hard).
		Int("soft_violations", soft).
		Msg("排班生成完成")
}

// RuleReplaced 记录规则被同编号规则替换
func (l *SchedulerLogger) RuleReplaced(rule string) {
	l.base.Debug().
		Str("rule", rule).
		Msg("规则已替换")
}

// Infeasible 记录名单不可行
func (l *SchedulerLogger) Infeasible(runID string, items []string) {
	l.base.Error().
		Str("run_id", runID).
		Strs("unsatisfiable", items).
		Msg("名单无法满足硬规则")
}
