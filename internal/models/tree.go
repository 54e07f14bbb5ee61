package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

type TreeNode struct {
	IsLeaf           bool
	Class            int
	Counts           map[int]int
	Feature          int
	Threshold        decimal.Decimal
	Left             *TreeNode
	Right            *TreeNode
	Samples          int
	Impurity         float64
	ImpurityDecrease float64
}

// DecisionTree is a CART classifier using Gini impurity. A sample goes left
// when its feature value is below the node threshold.
type DecisionTree struct {
	BaseModel
	Root                *TreeNode
	MaxDepth            int
	MinSamplesSplit     int
	MinImpurityDecrease float64
}

func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit <= 0 {
		minSamplesSplit = 2
	}

	return &DecisionTree{
		MaxDepth:            maxDepth,
		MinSamplesSplit:     minSamplesSplit,
		MinImpurityDecrease: 0.01,
		BaseModel: BaseModel{
			Name: "DecisionTree",
			Params: map[string]any{
				"max_depth":         maxDepth,
				"min_samples_split": minSamplesSplit,
			},
		},
	}
}

func (dt *DecisionTree) Fit(X [][]decimal.Decimal, y []int) error {
	if err := CheckDataset(X, len(y)); err != nil {
		return err
	}
	dt.Classes = ExtractClasses(y)
	dt.Root = dt.buildTree(X, y, 0)
	return nil
}

func (dt *DecisionTree) buildTree(X [][]decimal.Decimal, y []int, depth int) *TreeNode {
	node := &TreeNode{
		Samples:  len(y),
		Counts:   countClasses(y),
		Impurity: gini(y),
	}
	node.Class = argmaxVotes(dt.Classes, node.Counts)

	if depth >= dt.MaxDepth || len(y) < dt.MinSamplesSplit || node.Impurity < dt.MinImpurityDecrease {
		node.IsLeaf = true
		return node
	}

	feature, threshold, decrease := dt.findBestSplit(X, y, node.Impurity)
	if decrease < dt.MinImpurityDecrease {
		node.IsLeaf = true
		return node
	}

	left, right := splitIndices(X, feature, threshold)
	if len(left) == 0 || len(right) == 0 {
		node.IsLeaf = true
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.ImpurityDecrease = decrease

	XLeft, yLeft := selectRows(X, y, left)
	XRight, yRight := selectRows(X, y, right)
	node.Left = dt.buildTree(XLeft, yLeft, depth+1)
	node.Right = dt.buildTree(XRight, yRight, depth+1)

	return node
}

// findBestSplit scans every feature, trying the midpoints between
// consecutive distinct values as thresholds. Features and thresholds are
// visited in a fixed order, so the first best split wins deterministically.
func (dt *DecisionTree) findBestSplit(X [][]decimal.Decimal, y []int, parentImpurity float64) (int, decimal.Decimal, float64) {
	bestFeature := 0
	bestThreshold := decimal.Zero
	bestDecrease := 0.0
	n := float64(len(y))

	for feature := range X[0] {
		for _, threshold := range midpoints(uniqueValues(X, feature)) {
			var yLeft, yRight []int
			for i, sample := range X {
				if sample[feature].LessThan(threshold) {
					yLeft = append(yLeft, y[i])
				} else {
					yRight = append(yRight, y[i])
				}
			}
			if len(yLeft) == 0 || len(yRight) == 0 {
				continue
			}

			weighted := float64(len(yLeft))/n*gini(yLeft) + float64(len(yRight))/n*gini(yRight)
			if decrease := parentImpurity - weighted; decrease > bestDecrease {
				bestFeature, bestThreshold, bestDecrease = feature, threshold, decrease
			}
		}
	}

	return bestFeature, bestThreshold, bestDecrease
}

// Prune collapses subtrees whose removal does not lower validation accuracy.
func (dt *DecisionTree) Prune(XVal [][]decimal.Decimal, yVal []int) {
	if dt.Root == nil || len(XVal) == 0 || len(XVal) != len(yVal) {
		return
	}
	dt.pruneNode(dt.Root, XVal, yVal)
}

func (dt *DecisionTree) pruneNode(node *TreeNode, XVal [][]decimal.Decimal, yVal []int) {
	if node.IsLeaf {
		return
	}

	withSubtrees := accuracyAt(node, XVal, yVal)
	node.IsLeaf = true
	asLeaf := accuracyAt(node, XVal, yVal)

	if asLeaf >= withSubtrees {
		node.Left, node.Right = nil, nil
		return
	}

	node.IsLeaf = false
	dt.pruneNode(node.Left, XVal, yVal)
	dt.pruneNode(node.Right, XVal, yVal)
}

func (dt *DecisionTree) Predict(X [][]decimal.Decimal) []int {
	predictions := make([]int, len(X))
	for i, sample := range X {
		predictions[i] = dt.leaf(sample).Class
	}
	return predictions
}

// PredictProba returns the class frequencies of the leaf each sample lands in.
func (dt *DecisionTree) PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal {
	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		leaf := dt.leaf(sample)
		total := decimal.NewFromInt(int64(leaf.Samples))
		proba[i] = make([]decimal.Decimal, len(dt.Classes))
		for j, class := range dt.Classes {
			proba[i][j] = decimal.NewFromInt(int64(leaf.Counts[class])).Div(total)
		}
	}
	return proba
}

func (dt *DecisionTree) leaf(sample []decimal.Decimal) *TreeNode {
	return descend(dt.Root, sample)
}

func (dt *DecisionTree) GetClasses() []int {
	return dt.Classes
}

func (dt *DecisionTree) Reset() {
	dt.Root = nil
	dt.Classes = nil
}

// Depth is the number of edges on the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	var depth func(*TreeNode) int
	depth = func(n *TreeNode) int {
		if n == nil || n.IsLeaf {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(dt.Root)
}

func descend(node *TreeNode, sample []decimal.Decimal) *TreeNode {
	for !node.IsLeaf {
		if sample[node.Feature].LessThan(node.Threshold) {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func accuracyAt(node *TreeNode, XVal [][]decimal.Decimal, yVal []int) float64 {
	if len(XVal) == 0 {
		return 0.0
	}
	correct := 0
	for i, sample := range XVal {
		if descend(node, sample).Class == yVal[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(XVal))
}

func countClasses(y []int) map[int]int {
	counts := make(map[int]int)
	for _, class := range y {
		counts[class]++
	}
	return counts
}

func gini(y []int) float64 {
	if len(y) == 0 {
		return 0.0
	}
	impurity := 1.0
	n := float64(len(y))
	for _, count := range countClasses(y) {
		p := float64(count) / n
		impurity -= p * p
	}
	return impurity
}

func uniqueValues(X [][]decimal.Decimal, feature int) []decimal.Decimal {
	seen := make(map[string]bool)
	var values []decimal.Decimal
	for _, sample := range X {
		key := sample[feature].String()
		if !seen[key] {
			seen[key] = true
			values = append(values, sample[feature])
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i].LessThan(values[j]) })
	return values
}

func midpoints(values []decimal.Decimal) []decimal.Decimal {
	if len(values) < 2 {
		return nil
	}
	two := decimal.NewFromInt(2)
	out := make([]decimal.Decimal, len(values)-1)
	for i := range out {
		out[i] = values[i].Add(values[i+1]).Div(two)
	}
	return out
}

func splitIndices(X [][]decimal.Decimal, feature int, threshold decimal.Decimal) ([]int, []int) {
	var left, right []int
	for i, sample := range X {
		if sample[feature].LessThan(threshold) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func selectRows(X [][]decimal.Decimal, y []int, indices []int) ([][]decimal.Decimal, []int) {
	selectedX := make([][]decimal.Decimal, len(indices))
	selectedY := make([]int, len(indices))
	for i, idx := range indices {
		selectedX[i] = X[idx]
		selectedY[i] = y[idx]
	}
	return selectedX, selectedY
}
