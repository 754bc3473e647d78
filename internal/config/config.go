// Package config 提供配置管理
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/logger"
	"github.com/menzhen/menzhen/pkg/scheduler/optimizer"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `env:"NAME" envDefault:"menzhen"`
	Env       string `env:"ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	Deadline        time.Duration `env:"DEADLINE" envDefault:"3m"`
	PopulationSize  int           `env:"POPULATION_SIZE" envDefault:"300"`
	MinPopulation   int           `env:"MIN_POPULATION" envDefault:"20"`
	MaxPopulation   int           `env:"MAX_POPULATION" envDefault:"500"`
	MaxGenerations  int           `env:"MAX_GENERATIONS" envDefault:"500"`
	MutationRate    float64       `env:"MUTATION_RATE" envDefault:"0.15"`
	CrossoverRate   float64       `env:"CROSSOVER_RATE" envDefault:"0.8"`
	TournamentSize  int           `env:"TOURNAMENT_SIZE" envDefault:"5"`
	StagnationLimit int           `env:"STAGNATION_LIMIT" envDefault:"30"`
	Workers         int           `env:"WORKERS" envDefault:"4"`
	Seed            int64         `env:"SEED" envDefault:"0"` // 0 表示按时间取种子
	CatalogPath     string        `env:"CATALOG_PATH"`        // 为空时使用内置目录
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Addr    string `env:"ADDR" envDefault:":9090"`
}

// Load 从 .env 文件（可选）和环境变量加载配置
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()
	return Parse()
}

// Parse 仅从环境变量解析配置
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			err = aggErr.Errors[0]
		}
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "配置解析失败")
	}
	return cfg, nil
}

// OptimizerConfig 转换为遗传算法配置
func (c *Config) OptimizerConfig() optimizer.Config {
	s := c.Scheduler
	return optimizer.Config{
		PopulationSize:  s.PopulationSize,
		MinPopulation:   s.MinPopulation,
		MaxPopulation:   s.MaxPopulation,
		MaxGenerations:  s.MaxGenerations,
		MutationRate:    s.MutationRate,
		CrossoverRate:   s.CrossoverRate,
		TournamentSize:  s.TournamentSize,
		StagnationLimit: s.StagnationLimit,
		Deadline:        s.Deadline,
		Workers:         s.Workers,
		Seed:            s.Seed,
	}
}

// LoggerConfig 转换为日志配置；标准输出留给 JSON 结果，日志写 stderr
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.App.LogLevel
	cfg.Format = c.App.LogFormat
	cfg.Output = "stderr"
	return cfg
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
