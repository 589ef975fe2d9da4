package anomaly

import (
	"math"
	"math/rand"
)

// Isolation forest defaults. Runs are seeded, so two detections over the
// same series produce the same scores.
const (
	defaultTrees     = 100
	defaultSubsample = 256
)

type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int
	leaf    bool
}

// isolationForest isolates anomalous rows by random axis-aligned splits.
// Short average path lengths across the ensemble mean easy isolation, which
// means anomalous.
type isolationForest struct {
	trees     []*isoNode
	subsample int
	maxDepth  int
	rng       *rand.Rand
}

func newIsolationForest(trees, subsample int, seed int64) *isolationForest {
	if trees <= 0 {
		trees = defaultTrees
	}
	if subsample <= 0 {
		subsample = defaultSubsample
	}
	return &isolationForest{
		trees:     make([]*isoNode, 0, trees),
		subsample: subsample,
		maxDepth:  int(math.Ceil(math.Log2(float64(subsample)))),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (f *isolationForest) fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	if f.subsample > len(rows) {
		f.subsample = len(rows)
		f.maxDepth = int(math.Ceil(math.Log2(float64(f.subsample))))
	}
	n := cap(f.trees)
	for i := 0; i < n; i++ {
		f.trees = append(f.trees, f.buildTree(f.sample(rows), 0))
	}
}

// scoreSamples returns one score per row, negated so that lower means more
// anomalous. The magnitude is the standard 2^(-E(h)/c(n)) isolation score.
func (f *isolationForest) scoreSamples(rows [][]float64) []float64 {
	scores := make([]float64, len(rows))
	c := avgPathLength(f.subsample)
	for i, row := range rows {
		var total float64
		for _, tree := range f.trees {
			total += pathLength(tree, row, 0)
		}
		avg := total / float64(len(f.trees))
		scores[i] = -math.Pow(2, -avg/c)
	}
	return scores
}

func (f *isolationForest) sample(rows [][]float64) [][]float64 {
	shuffled := make([][]float64, len(rows))
	copy(shuffled, rows)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:f.subsample]
}

func (f *isolationForest) buildTree(rows [][]float64, depth int) *isoNode {
	if len(rows) <= 1 || depth >= f.maxDepth || allIdentical(rows) {
		return &isoNode{size: len(rows), leaf: true}
	}

	feature := f.rng.Intn(len(rows[0]))
	lo, hi := featureRange(rows, feature)
	if lo == hi {
		return &isoNode{size: len(rows), leaf: true}
	}
	split := lo + f.rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range rows {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(rows), leaf: true}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    f.buildTree(left, depth+1),
		right:   f.buildTree(right, depth+1),
		size:    len(rows),
	}
}

func pathLength(node *isoNode, row []float64, depth int) float64 {
	if node.leaf {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.feature] < node.split {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search: 2H(n-1) - 2(n-1)/n with the harmonic number approximated via the
// Euler-Mascheroni constant.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}

func allIdentical(rows [][]float64) bool {
	first := rows[0]
	for _, row := range rows[1:] {
		for j := range first {
			if math.Abs(row[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(rows [][]float64, feature int) (lo, hi float64) {
	lo, hi = rows[0][feature], rows[0][feature]
	for _, row := range rows {
		v := row[feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
