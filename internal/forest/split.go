package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// ErrSplit is returned when labels cannot be split with stratification.
var ErrSplit = errors.New("stratified split")

// StratifiedSplit partitions row indices into train and test sets holding out
// ceil(testSize*n) rows, with each class represented in the test set in
// proportion to its share of y. Both index slices are returned in ascending
// order.
func StratifiedSplit(y []int, testSize float64, seed uint64) (train, test []int, err error) {
	n := len(y)
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("%w: test size %v outside (0, 1)", ErrSplit, testSize)
	}

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has only %d member", ErrSplit, c, len(idx))
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < len(classes) || n-nTest < len(classes) {
		return nil, nil, fmt.Errorf("%w: %d rows cannot hold %d classes in both splits", ErrSplit, n, len(classes))
	}

	alloc := allocate(classes, byClass, n, nTest)

	rng := rand.New(rand.NewPCG(seed, streamSeq))
	train = make([]int, 0, n-nTest)
	test = make([]int, 0, nTest)
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		k := alloc[c]
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// allocate distributes nTest held-out rows across classes proportionally,
// handing leftover rows to the classes with the largest fractional share.
// Every class keeps at least one row on each side.
func allocate(classes []int, byClass map[int][]int, n, nTest int) map[int]int {
	alloc := make(map[int]int, len(classes))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, 0, len(classes))
	given := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		k := int(math.Floor(exact))
		k = max(1, min(k, len(byClass[c])-1))
		alloc[c] = k
		given += k
		rems = append(rems, rem{class: c, frac: exact - math.Floor(exact)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; given < nTest; i = (i + 1) % len(rems) {
		c := rems[i].class
		if alloc[c] < len(byClass[c])-1 {
			alloc[c]++
			given++
		}
	}
	for i := 0; given > nTest; i = (i + 1) % len(rems) {
		c := rems[len(rems)-1-i].class
		if alloc[c] > 1 {
			alloc[c]--
			given--
		}
	}
	return alloc
}

// Rows selects the rows of x and y at idx.
func Rows(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
