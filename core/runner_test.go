package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// lineEnv walks a scalar state toward a target; reward is the negated
// distance after the step.
type lineEnv struct {
	target float64
	state  float64
}

func (e *lineEnv) Reset() (LatentState, error) {
	e.state = 0
	return LatentState{e.state}, nil
}

func (e *lineEnv) Step(a Action, _ *StepContext) (LatentState, float64, bool, error) {
	e.state += a[0]
	dist := e.target - e.state
	if dist < 0 {
		dist = -dist
	}
	return LatentState{e.state}, -dist, dist < 0.1, nil
}

type lineEnvConstructor struct{ target float64 }

func (c *lineEnvConstructor) NewEnvironment(_ int) Environment {
	return &lineEnv{target: c.target}
}

// stepPlanner always moves a fixed amount, optionally failing.
type stepPlanner struct {
	step float64
	err  error
}

func (p *stepPlanner) Plan(_ context.Context, _ LatentState) (Action, error) {
	if p.err != nil {
		return nil, p.err
	}
	return Action{p.step}, nil
}

func (p *stepPlanner) Reset() {}

type stepPlannerConstructor struct {
	step float64
	err  error
}

func (c *stepPlannerConstructor) NewPlanner() Planner {
	return &stepPlanner{step: c.step, err: c.err}
}

// countingAnalyzer tallies completed and errored episodes.
type countingAnalyzer struct {
	completed int
	errored   int
}

func (a *countingAnalyzer) Analyze(eCtx *EpisodeContext, _ *Trace) {
	if eCtx.IsError() {
		a.errored++
	} else {
		a.completed++
	}
}

func (a *countingAnalyzer) DataSet() DataSet { return []int{a.completed, a.errored} }
func (a *countingAnalyzer) Reset()           { a.completed = 0; a.errored = 0 }

type countingAnalyzerConstructor struct{}

func (c *countingAnalyzerConstructor) NewAnalyzer(_ string, _ int) Analyzer {
	return &countingAnalyzer{}
}

type recordingComparator struct {
	names    []string
	datasets []DataSet
}

func (c *recordingComparator) Compare(names []string, datasets []DataSet) {
	c.names = names
	c.datasets = datasets
}

func testRunConfig() *RunConfig {
	return &RunConfig{
		Episodes:                     3,
		Horizon:                      10,
		EpisodeTimeout:               5 * time.Second,
		ThresholdConsecutiveErrors:   2,
		ThresholdConsecutiveTimeouts: 2,
	}
}

func TestComparisonRunsEpisodes(t *testing.T) {
	cmp := NewComparison()
	analyzer := &countingAnalyzer{}
	comparator := &recordingComparator{}
	cmp.AddAnalysis("Counts", analyzer, comparator)
	cmp.AddExperiment(&Experiment{
		Name:        "Step",
		Environment: &lineEnv{target: 1.0},
		Planner:     &stepPlanner{step: 0.2},
	})

	cmp.Run(context.Background(), 1, testRunConfig())

	require.Equal(t, []string{"Step"}, comparator.names)
	require.Len(t, comparator.datasets, 1)
	counts := comparator.datasets[0].([]int)
	require.Greater(t, counts[0], 0)
	require.Equal(t, 0, counts[1])
}

func TestExperimentStopsOnConsecutiveErrors(t *testing.T) {
	wantErr := errors.New("planner exploded")
	cmp := NewComparison()
	comparator := &recordingComparator{}
	cmp.AddAnalysis("Counts", &countingAnalyzer{}, comparator)
	cmp.AddExperiment(&Experiment{
		Name:        "Broken",
		Environment: &lineEnv{target: 1.0},
		Planner:     &stepPlanner{err: wantErr},
	})

	cmp.Run(context.Background(), 1, testRunConfig())

	// the experiment errored out, so its dataset slot is nil
	require.Equal(t, []string{"Broken"}, comparator.names)
	require.Nil(t, comparator.datasets[0])
}

func TestParallelComparisonRunsAllExperiments(t *testing.T) {
	cmp := NewParallelComparison()
	comparator := &recordingComparator{}
	cmp.AddAnalysis("Counts", &countingAnalyzerConstructor{}, comparatorConstructorFunc(func(int) Comparator {
		return comparator
	}))
	cmp.AddExperiment(&ParallelExperiment{
		Name:        "Fast",
		Environment: &lineEnvConstructor{target: 0.5},
		Planner:     &stepPlannerConstructor{step: 0.25},
	})
	cmp.AddExperiment(&ParallelExperiment{
		Name:        "Slow",
		Environment: &lineEnvConstructor{target: 2.0},
		Planner:     &stepPlannerConstructor{step: 0.1},
	})

	cmp.Run(context.Background(), 1, testRunConfig(), 2)

	require.ElementsMatch(t, []string{"Fast", "Slow"}, comparator.names)
	require.Len(t, comparator.datasets, 2)
}

type comparatorConstructorFunc func(int) Comparator

func (f comparatorConstructorFunc) NewComparator(run int) Comparator { return f(run) }

// slowPlanner blocks inside Plan, like an oracle call that cannot observe
// cancellation mid-flight, and records how many Plan calls overlap.
type slowPlanner struct {
	delay     time.Duration
	active    atomic.Int32
	maxActive atomic.Int32
}

func (p *slowPlanner) Plan(_ context.Context, _ LatentState) (Action, error) {
	n := p.active.Add(1)
	for {
		m := p.maxActive.Load()
		if n <= m || p.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(p.delay)
	p.active.Add(-1)
	return Action{0.1}, nil
}

func (p *slowPlanner) Reset() {}

func TestTimedOutEpisodeReleasesPlannerBeforeNext(t *testing.T) {
	planner := &slowPlanner{delay: 80 * time.Millisecond}
	cmp := NewComparison()
	cmp.AddAnalysis("Counts", &countingAnalyzer{}, &recordingComparator{})
	cmp.AddExperiment(&Experiment{
		Name:        "Slow",
		Environment: &lineEnv{target: 100},
		Planner:     planner,
	})

	cfg := testRunConfig()
	cfg.EpisodeTimeout = 20 * time.Millisecond
	cmp.Run(context.Background(), 1, cfg)

	// episodes time out, but the next one must not start until the previous
	// goroutine has released the shared planner and environment
	require.Equal(t, int32(1), planner.maxActive.Load())
}
