package evaluation

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/data"
)

// TrainTestSplitter splits row indices rather than data, so the same split
// applies to a frame and its aligned target slice.
type TrainTestSplitter struct {
	testSize   float64
	randomSeed int64
	shuffle    bool
}

func NewTrainTestSplitter(testSize float64, randomSeed int64, shuffle bool) *TrainTestSplitter {
	return &TrainTestSplitter{
		testSize:   testSize,
		randomSeed: randomSeed,
		shuffle:    shuffle,
	}
}

func (tts *TrainTestSplitter) validate(n int) error {
	if n == 0 {
		return fmt.Errorf("cannot split empty dataset")
	}
	if tts.testSize <= 0 || tts.testSize >= 1 {
		return fmt.Errorf("test size must be between 0 and 1")
	}
	return nil
}

// Split returns train and test indices over n rows. The last
// floor(n*testSize) shuffled rows form the test set.
func (tts *TrainTestSplitter) Split(n int) (train, test []int, err error) {
	if err := tts.validate(n); err != nil {
		return nil, nil, err
	}

	indices := sequence(n)
	if tts.shuffle {
		rng := rand.New(rand.NewSource(tts.randomSeed))
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testCount := int(float64(n) * tts.testSize)
	if testCount == 0 {
		return nil, nil, fmt.Errorf("test size %.2f leaves no test rows out of %d", tts.testSize, n)
	}
	trainCount := n - testCount
	return indices[:trainCount], indices[trainCount:], nil
}

// StratifiedSplit keeps each class's share in both sides. Every class puts at
// least one row into the test set.
func (tts *TrainTestSplitter) StratifiedSplit(y []int) (train, test []int, err error) {
	if err := tts.validate(len(y)); err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewSource(tts.randomSeed))
	for _, class := range sortedClasses(y) {
		indices := classIndices(y, class)
		if tts.shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}

		testCount := int(float64(len(indices)) * tts.testSize)
		if testCount == 0 {
			testCount = 1
		}
		trainCount := len(indices) - testCount
		train = append(train, indices[:trainCount]...)
		test = append(test, indices[trainCount:]...)
	}

	if tts.shuffle {
		rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
		rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	}
	return train, test, nil
}

// KFold partitions n row indices into folds of near equal size; the last
// fold takes the remainder.
func KFold(n, nFolds int, shuffle bool, seed int64) ([][]int, error) {
	if nFolds < 2 || nFolds > n {
		return nil, fmt.Errorf("invalid number of folds: %d (must be between 2 and %d)", nFolds, n)
	}

	indices := sequence(n)
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([][]int, nFolds)
	foldSize := n / nFolds
	for i := range folds {
		start := i * foldSize
		end := start + foldSize
		if i == nFolds-1 {
			end = n
		}
		folds[i] = append([]int(nil), indices[start:end]...)
	}
	return folds, nil
}

// StratifiedKFold deals every class's rows round-robin over the folds.
func StratifiedKFold(y []int, nFolds int, shuffle bool, seed int64) ([][]int, error) {
	if nFolds < 2 || nFolds > len(y) {
		return nil, fmt.Errorf("invalid number of folds: %d (must be between 2 and %d)", nFolds, len(y))
	}

	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, nFolds)
	next := 0
	for _, class := range sortedClasses(y) {
		indices := classIndices(y, class)
		if shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for _, idx := range indices {
			folds[next] = append(folds[next], idx)
			next = (next + 1) % nFolds
		}
	}
	return folds, nil
}

// Complement returns the indices in [0, n) that are not in subset.
func Complement(n int, subset []int) []int {
	skip := make(map[int]bool, len(subset))
	for _, idx := range subset {
		skip[idx] = true
	}
	out := make([]int, 0, n-len(subset))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}

// Subset gathers y at the given indices.
func Subset[Y any](y []Y, indices []int) []Y {
	out := make([]Y, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}

// SplitFrame materialises the two sides of a split.
func SplitFrame(f *data.Frame, train, test []int) (*data.Frame, *data.Frame, error) {
	trainFrame, err := f.Take(train)
	if err != nil {
		return nil, nil, err
	}
	testFrame, err := f.Take(test)
	if err != nil {
		trainFrame.Release()
		return nil, nil, err
	}
	return trainFrame, testFrame, nil
}

func sequence(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func sortedClasses(y []int) []int {
	seen := make(map[int]bool)
	var classes []int
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Ints(classes)
	return classes
}

func classIndices(y []int, class int) []int {
	var indices []int
	for i, label := range y {
		if label == class {
			indices = append(indices, i)
		}
	}
	return indices
}
