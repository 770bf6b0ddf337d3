package analysis

import (
	"fmt"
	"path"

	"github.com/latent-rl/cem-planning/core"
	"github.com/latent-rl/cem-planning/util"
)

type returnDataset struct {
	Episodes  []int
	Timesteps []int
	Returns   []float64
	Steps     []int
	Successes []bool
}

func (r *returnDataset) Copy() *returnDataset {
	return &returnDataset{
		Episodes:  util.CopyIntSlice(r.Episodes),
		Timesteps: util.CopyIntSlice(r.Timesteps),
		Returns:   util.CopyFloatSlice(r.Returns),
		Steps:     util.CopyIntSlice(r.Steps),
		Successes: util.CopyBoolSlice(r.Successes),
	}
}

// ReturnAnalyzer records the realized return, length and success of every
// completed episode.
type ReturnAnalyzer struct {
	dataset *returnDataset
}

var _ core.Analyzer = &ReturnAnalyzer{}

func NewReturnAnalyzer() *ReturnAnalyzer {
	return &ReturnAnalyzer{
		dataset: newReturnDataset(),
	}
}

func newReturnDataset() *returnDataset {
	return &returnDataset{
		Episodes:  make([]int, 0),
		Timesteps: make([]int, 0),
		Returns:   make([]float64, 0),
		Steps:     make([]int, 0),
		Successes: make([]bool, 0),
	}
}

func (r *ReturnAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() || eCtx.IsTimeout() {
		return
	}
	r.dataset.Episodes = append(r.dataset.Episodes, eCtx.Episode)
	r.dataset.Timesteps = append(r.dataset.Timesteps, eCtx.StartTimeStep+trace.Len())
	r.dataset.Returns = append(r.dataset.Returns, trace.Return())
	r.dataset.Steps = append(r.dataset.Steps, trace.Len())
	r.dataset.Successes = append(r.dataset.Successes, trace.Succeeded())
}

func (r *ReturnAnalyzer) DataSet() core.DataSet {
	return r.dataset.Copy()
}

func (r *ReturnAnalyzer) Reset() {
	r.dataset = newReturnDataset()
}

type ReturnAnalyzerConstructor struct{}

var _ core.AnalyzerConstructor = &ReturnAnalyzerConstructor{}

func NewReturnAnalyzerConstructor() *ReturnAnalyzerConstructor {
	return &ReturnAnalyzerConstructor{}
}

func (r *ReturnAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewReturnAnalyzer()
}

// ReturnComparator persists the per-experiment return datasets of one run as
// a single JSON file under savePath.
type ReturnComparator struct {
	savePath string
	run      int
}

var _ core.Comparator = &ReturnComparator{}

func NewReturnComparator(savePath string, run int) *ReturnComparator {
	return &ReturnComparator{
		savePath: savePath,
		run:      run,
	}
}

func (c *ReturnComparator) Compare(names []string, datasets []core.DataSet) {
	out := make(map[string]*returnDataset)
	for i, name := range names {
		if i >= len(datasets) || datasets[i] == nil {
			continue
		}
		ds, ok := datasets[i].(*returnDataset)
		if !ok {
			continue
		}
		out[name] = ds
	}
	util.SaveJson(path.Join(c.savePath, fmt.Sprintf("returns_%d.json", c.run)), out)
}

type ReturnComparatorConstructor struct {
	SavePath string
}

var _ core.ComparatorConstructor = &ReturnComparatorConstructor{}

func NewReturnComparatorConstructor(savePath string) *ReturnComparatorConstructor {
	return &ReturnComparatorConstructor{
		SavePath: savePath,
	}
}

func (c *ReturnComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewReturnComparator(c.SavePath, run)
}
