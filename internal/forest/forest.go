// Package forest implements a bagged ensemble of CART classification trees
// for binary labels.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// Defaults match the hyperparameters the serving artifacts were tuned with.
const (
	DefaultTrees           = 100
	DefaultMaxDepth        = 10
	DefaultMinSamplesSplit = 100
	DefaultSeed            = 42
)

// streamSeq is the PCG stream selector for the master generator.
const streamSeq = 0x9e3779b97f4a7c15

var (
	ErrNoSamples   = errors.New("no training samples")
	ErrShape       = errors.New("feature matrix shape mismatch")
	ErrLabelValue  = errors.New("labels must be 0 or 1")
	ErrSingleClass = errors.New("training labels contain a single class")
)

// Params configures a forest fit.
type Params struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures is the number of features drawn per split; 0 means
	// floor(sqrt(nFeatures)).
	MaxFeatures int
	Seed        uint64
	// Workers bounds concurrent tree fits; 0 means one per tree.
	Workers int
}

// DefaultParams returns the production hyperparameters.
func DefaultParams() Params {
	return Params{
		Trees:           DefaultTrees,
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: DefaultMinSamplesSplit,
		Seed:            DefaultSeed,
	}
}

func (p Params) maxFeatures(nFeatures int) int {
	if p.MaxFeatures > 0 {
		return min(p.MaxFeatures, nFeatures)
	}
	return max(1, int(math.Sqrt(float64(nFeatures))))
}

func (p Params) validate() error {
	switch {
	case p.Trees < 1:
		return fmt.Errorf("trees must be positive, got %d", p.Trees)
	case p.MaxDepth < 1:
		return fmt.Errorf("max depth must be positive, got %d", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return fmt.Errorf("min samples split must be at least 2, got %d", p.MinSamplesSplit)
	case p.MaxFeatures < 0:
		return fmt.Errorf("max features must not be negative, got %d", p.MaxFeatures)
	}
	return nil
}

// Forest is a fitted random forest. All fields are exported for gob encoding
// and must not be modified after Fit returns. Params.Workers is always zero
// in a fitted forest.
type Forest struct {
	Trees       []Tree
	NFeatures   int
	Importances []float64
	Params      Params
}

// Fit grows p.Trees trees, each on a bootstrap sample of (x, y). Every tree
// draws from its own generator seeded from p.Seed before any tree starts, so
// the result does not depend on scheduling or p.Workers.
func Fit(ctx context.Context, x [][]float64, y []int, p Params) (*Forest, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, ErrNoSamples
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrShape, len(x), len(y))
	}
	nFeatures := len(x[0])
	seen := [2]bool{}
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), nFeatures)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("%w: row %d has label %d", ErrLabelValue, i, y[i])
		}
		seen[y[i]] = true
	}
	if !seen[0] || !seen[1] {
		return nil, ErrSingleClass
	}

	master := rand.New(rand.NewPCG(p.Seed, streamSeq))
	seeds := make([]uint64, p.Trees)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]Tree, p.Trees)
	treeImportances := make([][]float64, p.Trees)

	g, gctx := errgroup.WithContext(ctx)
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}
	for i := range p.Trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			b := newTreeBuilder(x, y, p, nFeatures, rng)
			trees[i] = b.build(bootstrap(len(x), rng))
			treeImportances[i] = b.importances
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	stored := p
	stored.Workers = 0
	return &Forest{
		Trees:       trees,
		NFeatures:   nFeatures,
		Importances: averageImportances(treeImportances, nFeatures),
		Params:      stored,
	}, nil
}

// PredictProba returns [P(on time), P(delayed)] averaged over all trees.
func (f *Forest) PredictProba(x []float64) [2]float64 {
	var sum [2]float64
	for i := range f.Trees {
		p := f.Trees[i].Proba(x)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	n := float64(len(f.Trees))
	return [2]float64{sum[0] / n, sum[1] / n}
}

// Predict returns the class with the higher averaged probability; ties go to
// class 0.
func (f *Forest) Predict(x []float64) int {
	p := f.PredictProba(x)
	if p[1] > p[0] {
		return 1
	}
	return 0
}

// NumFeatures reports the width of the vectors the forest was fit on.
func (f *Forest) NumFeatures() int { return f.NFeatures }

// FeatureImportances returns the mean decrease in impurity per feature,
// normalized to sum to 1.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

func bootstrap(n int, rng *rand.Rand) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rng.IntN(n)
	}
	return out
}

// averageImportances normalizes each tree's impurity decreases, averages them
// across trees, and renormalizes the result.
func averageImportances(perTree [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, imp := range perTree {
		total := 0.0
		for _, v := range imp {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range imp {
			out[j] += v / total
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
