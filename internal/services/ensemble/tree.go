package ensemble

import (
	"math/rand"
	"sort"
)

// Node is one entry of a flattened regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a regression tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for row x.
func (t Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 || n.Feature >= len(x) {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeParams struct {
	maxDepth    int
	minLeaf     int
	maxFeatures int // 0 means all
	thresholds  int // candidate split points per feature
}

type treeGrower struct {
	x   [][]float64
	y   []float64
	p   treeParams
	rng *rand.Rand
	out []Node
}

func growTree(x [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand) Tree {
	g := &treeGrower{x: x, y: y, p: p, rng: rng}
	g.grow(idx, 0)
	return Tree{Nodes: g.out}
}

func (g *treeGrower) grow(idx []int, depth int) int {
	pos := len(g.out)
	g.out = append(g.out, Node{Feature: -1, Value: mean(g.y, idx)})
	if depth >= g.p.maxDepth || len(idx) < 2*g.p.minLeaf {
		return pos
	}
	feat, thr, ok := g.bestSplit(idx)
	if !ok {
		return pos
	}
	var left, right []int
	for _, i := range idx {
		if g.x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.out[pos] = Node{Feature: feat, Threshold: thr, Left: l, Right: r, Value: g.out[pos].Value}
	return pos
}

func (g *treeGrower) bestSplit(idx []int) (int, float64, bool) {
	nf := len(g.x[idx[0]])
	feats := make([]int, nf)
	for i := range feats {
		feats[i] = i
	}
	if g.p.maxFeatures > 0 && g.p.maxFeatures < nf && g.rng != nil {
		g.rng.Shuffle(nf, func(i, j int) { feats[i], feats[j] = feats[j], feats[i] })
		feats = feats[:g.p.maxFeatures]
		sort.Ints(feats)
	}

	parent := sse(g.y, idx)
	bestGain, bestFeat, bestThr := 1e-12, -1, 0.0
	vals := make([]float64, len(idx))
	for _, f := range feats {
		for k, i := range idx {
			vals[k] = g.x[i][f]
		}
		for _, thr := range candidates(vals, g.p.thresholds) {
			var ls, lss, rs, rss float64
			var ln, rn int
			for _, i := range idx {
				v := g.y[i]
				if g.x[i][f] <= thr {
					ls += v
					lss += v * v
					ln++
				} else {
					rs += v
					rss += v * v
					rn++
				}
			}
			if ln < g.p.minLeaf || rn < g.p.minLeaf {
				continue
			}
			child := (lss - ls*ls/float64(ln)) + (rss - rs*rs/float64(rn))
			if gain := parent - child; gain > bestGain {
				bestGain, bestFeat, bestThr = gain, f, thr
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

// candidates returns up to k midpoints between distinct sorted values at quantile positions.
func candidates(vals []float64, k int) []float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	uniq := s[:0]
	for i, v := range s {
		if i == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) < 2 {
		return nil
	}
	mids := make([]float64, 0, len(uniq)-1)
	for i := 1; i < len(uniq); i++ {
		mids = append(mids, (uniq[i-1]+uniq[i])/2)
	}
	if k <= 0 || len(mids) <= k {
		return mids
	}
	out := make([]float64, 0, k)
	for j := 0; j < k; j++ {
		out = append(out, mids[(j*len(mids))/k])
	}
	return out
}

func mean(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	s := 0.0
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}

func sse(y []float64, idx []int) float64 {
	m := mean(y, idx)
	s := 0.0
	for _, i := range idx {
		d := y[i] - m
		s += d * d
	}
	return s
}
