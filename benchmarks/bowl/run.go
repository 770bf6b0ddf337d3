package bowl

import (
	"go.uber.org/zap"

	"github.com/latent-rl/cem-planning/analysis"
	"github.com/latent-rl/cem-planning/benchmarks/common"
	"github.com/latent-rl/cem-planning/core"
	"github.com/latent-rl/cem-planning/planners"
)

// PrepareComparison wires the quadratic bowl against all planner variants
// plus the random baseline.
func PrepareComparison(flags *common.Flags, logger *zap.Logger) (*core.ParallelComparison, error) {
	spec := core.UnitBox(flags.BowlDim)
	oracle := NewOracle(DefaultTarget(flags.BowlDim))
	envConstructor := NewEnvironmentConstructor(oracle)

	pCfg := flags.PlannerConfig(logger)
	cemConstructor, err := planners.NewCEMConstructor(spec, oracle, pCfg)
	if err != nil {
		return nil, err
	}

	levels, err := flags.Levels(spec.Dim)
	if err != nil {
		return nil, err
	}
	hCfg := pCfg
	hCfg.Levels = levels
	hierarchicalConstructor, err := planners.NewHierarchicalCEMConstructor(spec, oracle, hCfg)
	if err != nil {
		return nil, err
	}

	particleConstructor, err := planners.NewParticleConstructor(spec, oracle, pCfg)
	if err != nil {
		return nil, err
	}

	randomConstructor, err := planners.NewRandomConstructor(spec, flags.Seed)
	if err != nil {
		return nil, err
	}

	cmp := core.NewParallelComparison()
	cmp.AddAnalysis("Returns", analysis.NewReturnAnalyzerConstructor(), analysis.NewReturnComparatorConstructor(flags.SavePath))
	cmp.AddAnalysis("Errors", analysis.NewErrorAnalyzerConstructor(flags.SavePath), analysis.NewNoOpComparatorConstructor())

	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "Random",
		Environment: envConstructor,
		Planner:     randomConstructor,
	})
	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "CEM",
		Environment: envConstructor,
		Planner:     cemConstructor,
	})
	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "HierarchicalCEM",
		Environment: envConstructor,
		Planner:     hierarchicalConstructor,
	})
	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "Particle",
		Environment: envConstructor,
		Planner:     particleConstructor,
	})

	return cmp, nil
}
