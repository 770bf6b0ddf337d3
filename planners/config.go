package planners

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/latent-rl/cem-planning/core"
)

var (
	ErrInvalidConfig       = errors.New("invalid planner config")
	ErrInvalidDistribution = errors.New("invalid sampling distribution")
	ErrNoViableCandidates  = errors.New("no viable candidates")
)

// Objective selects which predicted quantity the scorer aggregates.
type Objective int

const (
	// ObjectiveReward sums the oracle's predicted rewards over the horizon.
	ObjectiveReward Objective = iota
	// ObjectiveNegCost treats the oracle's outputs as costs and negates the
	// aggregate, so that higher is still better.
	ObjectiveNegCost
)

// Config is the flat option set handed to a planner at construction. It is
// validated once, up front; planning calls never consult ambient state.
type Config struct {
	Horizon    int
	Iterations int
	Amount     int
	TopK       int
	Discount   float64
	Objective  Objective

	// WarmStart keeps the refined proposal mean across planning calls,
	// shifted by one timestep. Reset() discards it.
	WarmStart bool

	// Seed for the sampling source. Zero means seed from the wall clock.
	Seed uint64

	// Levels configures the hierarchical variant, coarsest first. Ignored by
	// the other variants.
	Levels []LevelConfig

	// StateSamples, ActionSamples and StateNoise configure the particle
	// variant. Ignored by the other variants.
	StateSamples  int
	ActionSamples int
	StateNoise    float64

	Logger *zap.Logger
}

// LevelConfig parameterizes one temporal level of the hierarchical planner.
type LevelConfig struct {
	// TimeScale is the number of real timesteps each abstract step covers.
	TimeScale int
	// EmbeddingSize is the dimensionality of the level's action embedding.
	EmbeddingSize int
	Iterations    int
	Amount        int
	TopK          int
}

func (c Config) normalized(spec core.ActionSpec) (Config, error) {
	if err := spec.Validate(); err != nil {
		return c, err
	}
	if c.Horizon < 1 {
		return c, fmt.Errorf("%w: horizon %d", ErrInvalidConfig, c.Horizon)
	}
	if c.Iterations < 1 {
		return c, fmt.Errorf("%w: iterations %d", ErrInvalidConfig, c.Iterations)
	}
	if c.Discount == 0 {
		c.Discount = 1.0
	}
	if c.Discount <= 0 || c.Discount > 1 {
		return c, fmt.Errorf("%w: discount %f", ErrInvalidConfig, c.Discount)
	}
	if c.Objective != ObjectiveReward && c.Objective != ObjectiveNegCost {
		return c, fmt.Errorf("%w: unknown objective %d", ErrInvalidConfig, c.Objective)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c, nil
}

func (c Config) normalizedCEM(spec core.ActionSpec) (Config, error) {
	c, err := c.normalized(spec)
	if err != nil {
		return c, err
	}
	if c.Amount < 1 {
		return c, fmt.Errorf("%w: amount %d", ErrInvalidConfig, c.Amount)
	}
	if c.TopK < 1 {
		return c, fmt.Errorf("%w: top_k %d", ErrInvalidConfig, c.TopK)
	}
	if c.TopK > c.Amount {
		c.Logger.Warn("top_k exceeds amount, clamping",
			zap.Int("top_k", c.TopK), zap.Int("amount", c.Amount))
		c.TopK = c.Amount
	}
	return c, nil
}

func (c Config) normalizedHierarchical(spec core.ActionSpec) (Config, error) {
	c, err := c.normalized(spec)
	if err != nil {
		return c, err
	}
	if len(c.Levels) == 0 {
		return c, fmt.Errorf("%w: hierarchical planner needs at least one level", ErrInvalidConfig)
	}
	levels := make([]LevelConfig, len(c.Levels))
	copy(levels, c.Levels)
	c.Levels = levels
	for i, lvl := range c.Levels {
		if lvl.TimeScale < 1 || lvl.TimeScale > c.Horizon {
			return c, fmt.Errorf("%w: level %d time scale %d", ErrInvalidConfig, i, lvl.TimeScale)
		}
		if lvl.EmbeddingSize < 1 {
			return c, fmt.Errorf("%w: level %d embedding size %d", ErrInvalidConfig, i, lvl.EmbeddingSize)
		}
		if lvl.Iterations < 1 || lvl.Amount < 1 || lvl.TopK < 1 {
			return c, fmt.Errorf("%w: level %d iterations/amount/top_k", ErrInvalidConfig, i)
		}
		if lvl.TopK > lvl.Amount {
			c.Logger.Warn("level top_k exceeds amount, clamping",
				zap.Int("level", i), zap.Int("top_k", lvl.TopK), zap.Int("amount", lvl.Amount))
			c.Levels[i].TopK = lvl.Amount
		}
	}
	finest := c.Levels[len(c.Levels)-1]
	if finest.TimeScale != 1 {
		return c, fmt.Errorf("%w: finest level must have time scale 1, got %d", ErrInvalidConfig, finest.TimeScale)
	}
	if finest.EmbeddingSize != spec.Dim {
		return c, fmt.Errorf("%w: finest level embedding size %d must match action dim %d",
			ErrInvalidConfig, finest.EmbeddingSize, spec.Dim)
	}
	return c, nil
}

func (c Config) normalizedParticle(spec core.ActionSpec) (Config, error) {
	c, err := c.normalized(spec)
	if err != nil {
		return c, err
	}
	if c.StateSamples < 1 {
		return c, fmt.Errorf("%w: state_samples %d", ErrInvalidConfig, c.StateSamples)
	}
	if c.ActionSamples < 1 {
		return c, fmt.Errorf("%w: action_samples %d", ErrInvalidConfig, c.ActionSamples)
	}
	if c.StateNoise < 0 {
		return c, fmt.Errorf("%w: state_noise %f", ErrInvalidConfig, c.StateNoise)
	}
	if c.TopK < 1 {
		return c, fmt.Errorf("%w: top_k %d", ErrInvalidConfig, c.TopK)
	}
	if c.TopK > c.ActionSamples {
		c.Logger.Warn("top_k exceeds action_samples, clamping",
			zap.Int("top_k", c.TopK), zap.Int("action_samples", c.ActionSamples))
		c.TopK = c.ActionSamples
	}
	return c, nil
}
