package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/latent-rl/cem-planning/benchmarks/common"
)

var (
	flags    *common.Flags = common.DefaultFlags()
	savePath string

	numRuns                int
	episodes               int
	horizon                int
	maxConsecutiveErrors   int
	maxConsecutiveTimeouts int
	episodeTimeout         int
	parallelism            int
	debug                  bool

	planHorizon   int
	iterations    int
	amount        int
	topK          int
	discount      float64
	warmStart     bool
	seed          uint64
	timeScales    []int
	embeddingSize []int
	stateSamples  int
	actionSamples int
	stateNoise    float64

	goalX      float64
	goalY      float64
	goalRadius float64
	bowlDim    int
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&savePath, "save-path", flags.SavePath, "Path to save results")

	cmd.PersistentFlags().IntVar(&numRuns, "num-runs", flags.NumRuns, "Number of runs")
	cmd.PersistentFlags().IntVar(&episodes, "episodes", flags.Episodes, "Number of episodes")
	cmd.PersistentFlags().IntVar(&horizon, "horizon", flags.Horizon, "Episode horizon (real environment steps)")
	cmd.PersistentFlags().IntVar(&maxConsecutiveErrors, "max-consecutive-errors", flags.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	cmd.PersistentFlags().IntVar(&maxConsecutiveTimeouts, "max-consecutive-timeouts", flags.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	cmd.PersistentFlags().IntVar(&episodeTimeout, "episode-timeout", int(flags.EpisodeTimeout.Seconds()), "Episode timeout in seconds")
	cmd.PersistentFlags().IntVar(&parallelism, "parallelism", flags.Parallelism, "Number of parallel workers")
	cmd.PersistentFlags().BoolVar(&debug, "debug", flags.Debug, "Enable debug logging")

	cmd.PersistentFlags().IntVar(&planHorizon, "plan-horizon", flags.PlanHorizon, "Planning lookahead (imagined steps per candidate)")
	cmd.PersistentFlags().IntVar(&iterations, "iterations", flags.Iterations, "Refinement iterations per planning call")
	cmd.PersistentFlags().IntVar(&amount, "amount", flags.Amount, "Candidates sampled per iteration")
	cmd.PersistentFlags().IntVar(&topK, "top-k", flags.TopK, "Elite set size")
	cmd.PersistentFlags().Float64Var(&discount, "discount", flags.Discount, "Reward discount over the planning horizon")
	cmd.PersistentFlags().BoolVar(&warmStart, "warm-start", flags.WarmStart, "Warm-start the proposal from the previous timestep")
	cmd.PersistentFlags().Uint64Var(&seed, "seed", flags.Seed, "Sampling seed, 0 seeds from the clock")
	cmd.PersistentFlags().IntSliceVar(&timeScales, "time-scales", flags.TimeScales, "Hierarchical level time scales, coarsest first")
	cmd.PersistentFlags().IntSliceVar(&embeddingSize, "embedding-sizes", flags.EmbeddingSizes, "Hierarchical level action embedding sizes")
	cmd.PersistentFlags().IntVar(&stateSamples, "state-samples", flags.StateSamples, "Particle planner initial-state samples")
	cmd.PersistentFlags().IntVar(&actionSamples, "action-samples", flags.ActionSamples, "Particle planner action samples per iteration")
	cmd.PersistentFlags().Float64Var(&stateNoise, "state-noise", flags.StateNoise, "Particle planner state perturbation scale")

	cmd.PersistentFlags().Float64Var(&goalX, "goal-x", flags.GoalX, "Navigation goal x")
	cmd.PersistentFlags().Float64Var(&goalY, "goal-y", flags.GoalY, "Navigation goal y")
	cmd.PersistentFlags().Float64Var(&goalRadius, "goal-radius", flags.GoalRadius, "Navigation goal radius")
	cmd.PersistentFlags().IntVar(&bowlDim, "bowl-dim", flags.BowlDim, "Bowl benchmark action dimension")
}

func UpdateFlags() {
	flags.SavePath = savePath

	flags.NumRuns = numRuns
	flags.Episodes = episodes
	flags.Horizon = horizon
	flags.MaxConsecutiveErrors = maxConsecutiveErrors
	flags.MaxConsecutiveTimeouts = maxConsecutiveTimeouts
	flags.EpisodeTimeout = time.Duration(episodeTimeout) * time.Second
	flags.Parallelism = parallelism
	flags.Debug = debug

	flags.PlanHorizon = planHorizon
	flags.Iterations = iterations
	flags.Amount = amount
	flags.TopK = topK
	flags.Discount = discount
	flags.WarmStart = warmStart
	flags.Seed = seed
	flags.TimeScales = timeScales
	flags.EmbeddingSizes = embeddingSize
	flags.StateSamples = stateSamples
	flags.ActionSamples = actionSamples
	flags.StateNoise = stateNoise

	flags.GoalX = goalX
	flags.GoalY = goalY
	flags.GoalRadius = goalRadius
	flags.BowlDim = bowlDim
}
