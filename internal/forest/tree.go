package forest

import (
	"math/rand/v2"
	"sort"
)

// Node is one node of a fitted decision tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	// Value holds the class fractions of the training samples that reached
	// the node.
	Value [2]float64
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a binary classification tree stored as a flat node slice with the
// root at index 0.
type Tree struct {
	Nodes []Node
}

// Proba returns the class fractions of the leaf x falls into.
func (t *Tree) Proba(x []float64) [2]float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// treeBuilder grows one tree over a bootstrap sample.
type treeBuilder struct {
	x               [][]float64
	y               []int
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
	rng             *rand.Rand

	nodes       []Node
	importances []float64
	// scratch for split search
	order []int
}

func newTreeBuilder(x [][]float64, y []int, p Params, nFeatures int, rng *rand.Rand) *treeBuilder {
	return &treeBuilder{
		x:               x,
		y:               y,
		maxDepth:        p.MaxDepth,
		minSamplesSplit: p.MinSamplesSplit,
		maxFeatures:     p.maxFeatures(nFeatures),
		rng:             rng,
		importances:     make([]float64, nFeatures),
	}
}

func (b *treeBuilder) build(samples []int) Tree {
	b.order = make([]int, len(samples))
	b.grow(samples, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the node for samples and its subtree, returning its index.
func (b *treeBuilder) grow(samples []int, depth int) int {
	counts := b.classCounts(samples)
	n := float64(len(samples))
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature: -1,
		Value:   [2]float64{counts[0] / n, counts[1] / n},
	})

	if depth >= b.maxDepth || len(samples) < b.minSamplesSplit || counts[0] == 0 || counts[1] == 0 {
		return idx
	}

	s, ok := b.bestSplit(samples, counts)
	if !ok {
		return idx
	}

	left := make([]int, 0, s.nLeft)
	right := make([]int, 0, len(samples)-s.nLeft)
	for _, i := range samples {
		if b.x[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[s.feature] += s.decrease

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Feature = s.feature
	b.nodes[idx].Threshold = s.threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

type split struct {
	feature   int
	threshold float64
	nLeft     int
	// decrease is the weighted impurity decrease, n*imp - nL*impL - nR*impR.
	decrease float64
}

// bestSplit searches a random subset of features for the threshold with the
// largest Gini decrease. Features are drawn without replacement; if none of
// the drawn features can separate the samples, the remaining ones are tried.
func (b *treeBuilder) bestSplit(samples []int, counts [2]float64) (split, bool) {
	nFeatures := len(b.importances)
	features := b.rng.Perm(nFeatures)

	n := float64(len(samples))
	parent := n * gini(counts[0], counts[1])

	best := split{feature: -1}
	for drawn, f := range features {
		if drawn >= b.maxFeatures && best.feature >= 0 {
			break
		}
		if s, ok := b.splitOn(samples, f, counts, parent); ok && s.decrease > best.decrease {
			best = s
		}
	}
	return best, best.feature >= 0 && best.decrease > 0
}

func (b *treeBuilder) splitOn(samples []int, f int, counts [2]float64, parent float64) (split, bool) {
	order := b.order[:len(samples)]
	copy(order, samples)
	sort.Slice(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

	if b.x[order[0]][f] == b.x[order[len(order)-1]][f] {
		return split{}, false
	}

	n := float64(len(order))
	var left [2]float64
	best := split{feature: -1}
	for k := 0; k < len(order)-1; k++ {
		left[b.y[order[k]]]++
		cur, next := b.x[order[k]][f], b.x[order[k+1]][f]
		if cur == next {
			continue
		}
		nl := float64(k + 1)
		nr := n - nl
		right := [2]float64{counts[0] - left[0], counts[1] - left[1]}
		dec := parent - nl*gini(left[0], left[1]) - nr*gini(right[0], right[1])
		if dec > best.decrease || best.feature < 0 {
			best = split{
				feature:   f,
				threshold: cur + (next-cur)/2,
				nLeft:     k + 1,
				decrease:  dec,
			}
		}
	}
	return best, best.feature >= 0
}

func (b *treeBuilder) classCounts(samples []int) [2]float64 {
	var c [2]float64
	for _, i := range samples {
		c[b.y[i]]++
	}
	return c
}

func gini(c0, c1 float64) float64 {
	n := c0 + c1
	if n == 0 {
		return 0
	}
	p0, p1 := c0/n, c1/n
	return 1 - p0*p0 - p1*p1
}
