// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/scheduler/fitness"
	"github.com/menzhen/menzhen/pkg/scheduler/optimizer"
)

// 排班结果类别
const (
	OutcomeOK         = "ok"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// Recorder 排班引擎指标，使用独立注册表；实现 optimizer.Observer
type Recorder struct {
	registry       *prometheus.Registry
	handler        http.Handler
	runs           *prometheus.CounterVec
	generations    prometheus.Counter
	bestFitness    prometheus.Gauge
	hardViolations prometheus.Gauge
	runDuration    prometheus.Histogram
}

// NewRecorder 创建并注册指标
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "menzhen_runs_total",
		Help: "Total number of scheduling runs by outcome",
	}, []string{"outcome"})

	generations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "menzhen_generations_total",
		Help: "Total number of completed GA generations",
	})

	bestFitness := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "menzhen_best_fitness",
		Help: "Best fitness of the current or last run",
	})

	hardViolations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "menzhen_hard_violations",
		Help: "Hard violations of the current best schedule",
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "menzhen_run_duration_seconds",
		Help:    "Duration of the GA search in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
	})

	registry.MustRegister(runs, generations, bestFitness, hardViolations, runDuration)

	return &Recorder{
		registry:       registry,
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runs:           runs,
		generations:    generations,
		bestFitness:    bestFitness,
		hardViolations: hardViolations,
		runDuration:    runDuration,
	}
}

// Handler 返回 /metrics 处理器
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Registry 返回注册表
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Generation 每代完成时更新
func (r *Recorder) Generation(_ int, _, best *fitness.Result) {
	if r == nil {
		return
	}
	r.generations.Inc()
	if best != nil {
		r.bestFitness.Set(best.Fitness)
		r.hardViolations.Set(float64(len(best.HardViolations)))
	}
}

// Finished 搜索结束时更新
func (r *Recorder) Finished(res *optimizer.Result) {
	if r == nil || res == nil {
		return
	}
	r.runDuration.Observe(res.Duration.Seconds())
	if res.Fitness != nil {
		r.bestFitness.Set(res.Fitness.Fitness)
		r.hardViolations.Set(float64(len(res.Fitness.HardViolations)))
	}
}

// RecordRun 按错误码记录一次排班结果
func (r *Recorder) RecordRun(err error) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(Outcome(err)).Inc()
}

// Outcome 错误码转结果类别
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch apperrors.GetCode(err) {
	case apperrors.CodeNoFeasibleSolution:
		return OutcomeInfeasible
	case apperrors.CodeInvalidInput, apperrors.CodeValidationFail, apperrors.CodeInvalidEdit:
		return OutcomeInvalid
	case apperrors.CodeTimeout:
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
