package boost

import "sort"

// node is one node of a regression tree in flat-array form. Left/Right hold
// indexes into the tree's node slice, -1 for none. Rows with feature value
// <= Threshold descend left.
type node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// tree is a CART-style regression tree fit to per-row gradients and hessians
// with Newton leaf values -G/(H+lambda).
type tree struct {
	Nodes []node
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	lambda         float64
}

// fitTree grows a tree on the rows indexed by idx. grad and hess are aligned
// to X rows and already include the sample weights.
func fitTree(X [][]float64, grad, hess []float64, idx []int, p treeParams) *tree {
	t := &tree{}
	t.grow(X, grad, hess, idx, 0, p)
	return t
}

// grow appends a node for idx and returns its index in t.Nodes.
func (t *tree) grow(X [][]float64, grad, hess []float64, idx []int, depth int, p treeParams) int {
	var gSum, hSum float64
	for _, i := range idx {
		gSum += grad[i]
		hSum += hess[i]
	}

	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, node{Left: -1, Right: -1, Leaf: true, Value: leafValue(gSum, hSum, p.lambda)})

	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return self
	}

	feature, threshold, gain := bestSplit(X, grad, hess, idx, gSum, hSum, p)
	if gain <= 0 {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.minSamplesLeaf || len(right) < p.minSamplesLeaf {
		return self
	}

	t.Nodes[self].Leaf = false
	t.Nodes[self].Feature = feature
	t.Nodes[self].Threshold = threshold
	t.Nodes[self].Left = t.grow(X, grad, hess, left, depth+1, p)
	t.Nodes[self].Right = t.grow(X, grad, hess, right, depth+1, p)
	return self
}

// bestSplit scans every feature for the threshold maximizing the Newton gain
//   GL^2/(HL+l) + GR^2/(HR+l) - G^2/(H+l).
func bestSplit(X [][]float64, grad, hess []float64, idx []int, gSum, hSum float64, p treeParams) (feature int, threshold, gain float64) {
	feature = -1
	parent := score(gSum, hSum, p.lambda)
	nFeatures := len(X[idx[0]])

	order := make([]int, len(idx))
	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var gl, hl float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			gl += grad[i]
			hl += hess[i]

			// No valid threshold between equal feature values.
			if X[order[pos]][f] == X[order[pos+1]][f] {
				continue
			}
			if pos+1 < p.minSamplesLeaf || len(order)-pos-1 < p.minSamplesLeaf {
				continue
			}

			g := score(gl, hl, p.lambda) + score(gSum-gl, hSum-hl, p.lambda) - parent
			if g > gain {
				gain = g
				feature = f
				threshold = (X[order[pos]][f] + X[order[pos+1]][f]) / 2
			}
		}
	}
	return feature, threshold, gain
}

func score(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}

func leafValue(g, h, lambda float64) float64 {
	return -g / (h + lambda)
}

// predict descends the tree for a single row.
func (t *tree) predict(row []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		if row[t.Nodes[i].Feature] <= t.Nodes[i].Threshold {
			i = t.Nodes[i].Left
		} else {
			i = t.Nodes[i].Right
		}
	}
	return t.Nodes[i].Value
}
