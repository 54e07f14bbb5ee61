package models

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type RandomForest struct {
	BaseModel
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Seed            int64
	Trees           []*DecisionTree
	FeatureIndices  [][]int
	Parallel        bool
	MaxWorkers      int
}

func NewRandomForest(nTrees, maxDepth, minSamplesSplit int) *RandomForest {
	if nTrees <= 0 {
		nTrees = 100
	}
	return &RandomForest{
		NTrees:          nTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		Parallel:        true,
		MaxWorkers:      4,
		BaseModel: BaseModel{
			Name: "RandomForest",
			Params: map[string]any{
				"n_trees":           nTrees,
				"max_depth":         maxDepth,
				"min_samples_split": minSamplesSplit,
			},
		},
	}
}

// Fit trains NTrees trees on bootstrap samples, each restricted to
// sqrt(features) randomly chosen columns. Tree i is seeded with Seed+i, so
// the forest is reproducible whether or not training runs in parallel.
func (rf *RandomForest) Fit(X [][]decimal.Decimal, y []int) error {
	if err := CheckDataset(X, len(y)); err != nil {
		return err
	}
	rf.Classes = ExtractClasses(y)

	nFeatures := len(X[0])
	rf.MaxFeatures = int(math.Sqrt(float64(nFeatures)))
	if rf.MaxFeatures < 1 && nFeatures > 0 {
		rf.MaxFeatures = 1
	}

	rf.Trees = make([]*DecisionTree, rf.NTrees)
	rf.FeatureIndices = make([][]int, rf.NTrees)

	if !rf.Parallel {
		for i := 0; i < rf.NTrees; i++ {
			if err := rf.trainTree(X, y, i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	if rf.MaxWorkers > 0 {
		g.SetLimit(rf.MaxWorkers)
	}
	for i := 0; i < rf.NTrees; i++ {
		g.Go(func() error {
			return rf.trainTree(X, y, i)
		})
	}
	return g.Wait()
}

func (rf *RandomForest) trainTree(X [][]decimal.Decimal, y []int, i int) error {
	r := rand.New(rand.NewSource(rf.Seed + int64(i)))

	n := len(X)
	features := rf.sampleFeatures(len(X[0]), r)
	XBoot := make([][]decimal.Decimal, n)
	yBoot := make([]int, n)
	for row := 0; row < n; row++ {
		idx := r.Intn(n)
		XBoot[row] = project(X[idx], features)
		yBoot[row] = y[idx]
	}

	tree := NewDecisionTree(rf.MaxDepth, rf.MinSamplesSplit)
	if err := tree.Fit(XBoot, yBoot); err != nil {
		return fmt.Errorf("tree %d training failed: %w", i, err)
	}
	// Leaves vote over the forest's classes even when a bootstrap missed one.
	tree.Classes = rf.Classes
	rf.Trees[i] = tree
	rf.FeatureIndices[i] = features
	return nil
}

// sampleFeatures draws MaxFeatures distinct columns with a partial
// Fisher-Yates shuffle.
func (rf *RandomForest) sampleFeatures(nFeatures int, r *rand.Rand) []int {
	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}
	for i := 0; i < rf.MaxFeatures; i++ {
		j := i + r.Intn(nFeatures-i)
		features[i], features[j] = features[j], features[i]
	}
	return features[:rf.MaxFeatures]
}

func (rf *RandomForest) Predict(X [][]decimal.Decimal) []int {
	predictions := make([]int, len(X))
	for i, sample := range X {
		predictions[i] = argmaxVotes(rf.Classes, rf.votes(sample))
	}
	return predictions
}

func (rf *RandomForest) PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal {
	proba := make([][]decimal.Decimal, len(X))
	nTrees := decimal.NewFromInt(int64(len(rf.Trees)))
	for i, sample := range X {
		votes := rf.votes(sample)
		proba[i] = make([]decimal.Decimal, len(rf.Classes))
		for j, class := range rf.Classes {
			proba[i][j] = decimal.NewFromInt(int64(votes[class])).Div(nTrees)
		}
	}
	return proba
}

func (rf *RandomForest) votes(sample []decimal.Decimal) map[int]int {
	votes := make(map[int]int)
	for j, tree := range rf.Trees {
		votes[tree.leaf(project(sample, rf.FeatureIndices[j])).Class]++
	}
	return votes
}

func (rf *RandomForest) GetClasses() []int {
	return rf.Classes
}

func (rf *RandomForest) Reset() {
	rf.Trees = nil
	rf.FeatureIndices = nil
	rf.Classes = nil
}

func project(row []decimal.Decimal, features []int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(features))
	for k, feat := range features {
		out[k] = row[feat]
	}
	return out
}
