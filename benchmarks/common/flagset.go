package common

import (
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/latent-rl/cem-planning/planners"
	"github.com/latent-rl/cem-planning/util"
)

type Flags struct {
	SavePath string
	RunFlags
	PlannerFlags
	NavFlags
	BowlFlags
	Parallelism int
	Debug       bool
}

type NavFlags struct {
	GoalX      float64
	GoalY      float64
	GoalRadius float64
}

type BowlFlags struct {
	BowlDim int
}

type RunFlags struct {
	NumRuns                int
	Episodes               int
	Horizon                int
	MaxConsecutiveErrors   int
	MaxConsecutiveTimeouts int
	EpisodeTimeout         time.Duration
}

type PlannerFlags struct {
	PlanHorizon int
	Iterations  int
	Amount      int
	TopK        int
	Discount    float64
	WarmStart   bool
	Seed        uint64

	// hierarchical variant, coarsest first; a finest level at time scale 1
	// is appended automatically when missing
	TimeScales     []int
	EmbeddingSizes []int

	// particle variant
	StateSamples  int
	ActionSamples int
	StateNoise    float64
}

func DefaultFlags() *Flags {
	return &Flags{
		SavePath: "results",
		RunFlags: RunFlags{
			NumRuns:                1,
			Episodes:               20,
			Horizon:                50,
			MaxConsecutiveErrors:   20,
			MaxConsecutiveTimeouts: 20,
			EpisodeTimeout:         60 * time.Second,
		},
		PlannerFlags: PlannerFlags{
			PlanHorizon:    12,
			Iterations:     10,
			Amount:         1000,
			TopK:           100,
			Discount:       1.0,
			WarmStart:      false,
			Seed:           0,
			TimeScales:     []int{4},
			EmbeddingSizes: []int{2},
			StateSamples:   4,
			ActionSamples:  250,
			StateNoise:     0.01,
		},
		NavFlags: NavFlags{
			GoalX:      2.0,
			GoalY:      1.0,
			GoalRadius: 0.2,
		},
		BowlFlags: BowlFlags{
			BowlDim: 2,
		},
		Parallelism: 4,
		Debug:       false,
	}
}

// Record persists the effective flag set next to the run's results.
func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SavePath, "config.json"), f)
}

// PlannerConfig maps the flat flag set onto a planner configuration.
func (f *Flags) PlannerConfig(logger *zap.Logger) planners.Config {
	return planners.Config{
		Horizon:       f.PlanHorizon,
		Iterations:    f.Iterations,
		Amount:        f.Amount,
		TopK:          f.TopK,
		Discount:      f.Discount,
		WarmStart:     f.WarmStart,
		Seed:          f.Seed,
		StateSamples:  f.StateSamples,
		ActionSamples: f.ActionSamples,
		StateNoise:    f.StateNoise,
		Logger:        logger,
	}
}

// Levels pairs the time-scale and embedding-size flags into level configs,
// appending the mandatory finest level when the flags stop above time
// scale 1.
func (f *Flags) Levels(actionDim int) ([]planners.LevelConfig, error) {
	if len(f.TimeScales) != len(f.EmbeddingSizes) {
		return nil, fmt.Errorf("time-scales and embedding-sizes must pair up: %d vs %d",
			len(f.TimeScales), len(f.EmbeddingSizes))
	}
	levels := make([]planners.LevelConfig, 0, len(f.TimeScales)+1)
	for i, ts := range f.TimeScales {
		levels = append(levels, planners.LevelConfig{
			TimeScale:     ts,
			EmbeddingSize: f.EmbeddingSizes[i],
			Iterations:    f.Iterations,
			Amount:        f.Amount,
			TopK:          f.TopK,
		})
	}
	if len(levels) == 0 || levels[len(levels)-1].TimeScale != 1 {
		levels = append(levels, planners.LevelConfig{
			TimeScale:     1,
			EmbeddingSize: actionDim,
			Iterations:    f.Iterations,
			Amount:        f.Amount,
			TopK:          f.TopK,
		})
	}
	return levels, nil
}

// NewLogger writes planner logs under the save path so they do not fight the
// live terminal writer for the screen.
func NewLogger(savePath string, debug bool) (*zap.Logger, error) {
	if err := os.MkdirAll(savePath, 0755); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{path.Join(savePath, "planner.log")}
	cfg.ErrorOutputPaths = []string{path.Join(savePath, "planner.log")}
	return cfg.Build()
}
