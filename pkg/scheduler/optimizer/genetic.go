// Package optimizer 提供遗传算法排班搜索
package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/menzhen/menzhen/pkg/logger"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/fitness"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// referenceComplexity 默认名单（21 人）在默认方案（12 间 x 10 个半天）上的规模
const referenceComplexity = 21 * 12 * 10

// Config 遗传算法配置
type Config struct {
	PopulationSize  int           `json:"population_size"`  // 参考规模下的种群大小
	MinPopulation   int           `json:"min_population"`   // 种群下限
	MaxPopulation   int           `json:"max_population"`   // 种群上限
	MaxGenerations  int           `json:"max_generations"`  // 最大代数
	MutationRate    float64       `json:"mutation_rate"`    // 每个子代的变异概率
	CrossoverRate   float64       `json:"crossover_rate"`   // 交叉概率
	TournamentSize  int           `json:"tournament_size"`  // 锦标赛规模
	StagnationLimit int           `json:"stagnation_limit"` // 连续无改进代数上限，0 表示不限
	Deadline        time.Duration `json:"deadline"`         // 墙钟时间预算，0 表示不限
	Workers         int           `json:"workers"`          // 并行评估协程数
	Seed            int64         `json:"seed"`             // 随机种子，0 表示按时间
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		PopulationSize:  300,
		MinPopulation:   20,
		MaxPopulation:   500,
		MaxGenerations:  500,
		MutationRate:    0.15,
		CrossoverRate:   0.8,
		TournamentSize:  5,
		StagnationLimit: 30,
		Deadline:        3 * time.Minute,
		Workers:         4,
	}
}

// AdaptivePopulation 按 人数 x 诊间数 x 半天数 调整种群大小
func (c Config) AdaptivePopulation(persons, rooms, slots int) int {
	complexity := float64(persons * rooms * slots)
	size := int(math.Round(float64(c.PopulationSize) * math.Pow(complexity/referenceComplexity, 1.2)))
	if size < c.MinPopulation {
		size = c.MinPopulation
	}
	if c.MaxPopulation > 0 && size > c.MaxPopulation {
		size = c.MaxPopulation
	}
	if size < 2 {
		size = 2
	}
	return size
}

// StopReason 搜索终止原因
type StopReason string

const (
	StopDeadline       StopReason = "deadline"
	StopStagnation     StopReason = "stagnation"
	StopMaxGenerations StopReason = "max_generations"
	StopCancelled      StopReason = "cancelled"
)

// Observer 搜索进度观察者；elite 为本代最优，best 为历代最优
type Observer interface {
	Generation(gen int, elite, best *fitness.Result)
	Finished(result *Result)
}

type nopObserver struct{}

func (nopObserver) Generation(int, *fitness.Result, *fitness.Result) {}
func (nopObserver) Finished(*Result)                                 {}

// Individual 种群中的一个候选方案
type Individual struct {
	Grid   *grid.Grid
	Result *fitness.Result
}

// Result 搜索结果：历代最优个体
type Result struct {
	Grid           *grid.Grid      `json:"-"`
	Fitness        *fitness.Result `json:"fitness"`
	Generations    int             `json:"generations"`
	StopReason     StopReason      `json:"stop_reason"`
	PopulationSize int             `json:"population_size"`
	Duration       time.Duration   `json:"duration"`
}

// GeneticOptimizer 遗传算法优化器；同一实例不可并发调用 Optimize
type GeneticOptimizer struct {
	config    Config
	evaluator *fitness.Evaluator
	parallel  *ParallelEvaluator
	mutator   *Mutator
	observer  Observer
	logger    *logger.SchedulerLogger
	rng       *rand.Rand
}

// NewGeneticOptimizer 创建优化器
func NewGeneticOptimizer(config Config, evaluator *fitness.Evaluator) *GeneticOptimizer {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.TournamentSize < 1 {
		config.TournamentSize = 1
	}
	rng := rand.New(rand.NewSource(seed))
	return &GeneticOptimizer{
		config:    config,
		evaluator: evaluator,
		parallel:  NewParallelEvaluator(config.Workers, evaluator),
		mutator:   NewMutator(evaluator, rng),
		observer:  nopObserver{},
		logger:    logger.NewSchedulerLogger(),
		rng:       rng,
	}
}

// SetObserver 设置进度观察者
func (o *GeneticOptimizer) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	o.observer = obs
}

// PopulationSize 返回当前名单和目录对应的种群大小
func (o *GeneticOptimizer) PopulationSize() int {
	cat := o.evaluator.Catalog()
	return o.config.AdaptivePopulation(o.evaluator.Roster().Len(), len(cat.Rooms()), len(model.HalfDays()))
}

// Optimize 从初始方案出发搜索，返回历代最优个体
//
// 锁定格子（R1 预排、R4 固定门诊、指定诊间）在所有个体中保持不变。
// 到达时间预算、停滞上限、最大代数或 ctx 取消时停止，均不视为错误。
func (o *GeneticOptimizer) Optimize(ctx context.Context, base *grid.Grid) (*Result, error) {
	start := time.Now()
	runID := logger.RunID(ctx)

	runCtx := ctx
	if o.config.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.config.Deadline)
		defer cancel()
	}

	size := o.PopulationSize()
	o.logger.StartRun(runID, o.evaluator.Roster().Len(), base.Len(), size)

	population, err := o.initialize(ctx, runCtx, base, size)
	if err != nil {
		return nil, err
	}
	best := fittest(population)
	elite := best

	result := &Result{PopulationSize: size}
	stagnation := 0
	for {
		if reason, stop := o.shouldStop(runCtx, result.Generations, stagnation); stop {
			result.StopReason = reason
			break
		}

		children := o.breed(population, elite, size)
		scores, err := o.parallel.EvaluateBatch(runCtx, children)
		if err != nil {
			// 本代未完成评估，丢弃
			continue
		}

		next := make([]*Individual, len(children))
		for i, g := range children {
			next[i] = &Individual{Grid: g, Result: scores[i]}
		}
		population = next
		result.Generations++

		elite = fittest(population)
		if elite.Result.Better(best.Result) {
			best = elite
			stagnation = 0
		} else {
			stagnation++
		}
		o.observer.Generation(result.Generations, elite.Result, best.Result)
		o.logger.Generation(runID, result.Generations, best.Result.Fitness, len(best.Result.HardViolations))
	}

	result.Grid = best.Grid.Clone()
	result.Fitness = best.Result
	result.Duration = time.Since(start)
	o.logger.Stopped(runID, string(result.StopReason), result.Generations)
	o.observer.Finished(result)
	return result, nil
}

// shouldStop 每代开始前检查终止条件
func (o *GeneticOptimizer) shouldStop(runCtx context.Context, gen, stagnation int) (StopReason, bool) {
	if err := runCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return StopDeadline, true
		}
		return StopCancelled, true
	}
	if o.config.StagnationLimit > 0 && stagnation >= o.config.StagnationLimit {
		return StopStagnation, true
	}
	if gen >= o.config.MaxGenerations {
		return StopMaxGenerations, true
	}
	return "", false
}

// breed 生成下一代：精英原样保留，其余由锦标赛选择、交叉、变异、修复产生
func (o *GeneticOptimizer) breed(population []*Individual, elite *Individual, size int) []*grid.Grid {
	next := make([]*grid.Grid, 0, size)
	next = append(next, elite.Grid.Clone())

	roster := o.evaluator.Roster()
	for len(next) < size {
		a := o.tournament(population)
		b := o.tournament(population)

		var c1, c2 *grid.Grid
		if o.rng.Float64() < o.config.CrossoverRate {
			c1, c2 = o.crossover(roster, a.Grid, b.Grid)
		} else {
			c1, c2 = a.Grid.Clone(), b.Grid.Clone()
		}
		for _, c := range []*grid.Grid{c1, c2} {
			if len(next) >= size {
				break
			}
			if o.rng.Float64() < o.config.MutationRate {
				o.mutator.Mutate(c)
			}
			grid.Repair(c)
			next = append(next, c)
		}
	}
	return next
}

// fittest 返回种群中最优个体
func fittest(population []*Individual) *Individual {
	best := population[0]
	for _, ind := range population[1:] {
		if ind.Result.Better(best.Result) {
			best = ind
		}
	}
	return best
}

func newContext(evaluator *fitness.Evaluator, g *grid.Grid) *constraint.Context {
	return constraint.NewContext(evaluator.Catalog(), evaluator.Roster(), g)
}
