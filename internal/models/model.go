package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmptyDataset      = errors.New("empty dataset")
)

// Model is a classifier over a transformed feature matrix.
type Model interface {
	Fit(X [][]decimal.Decimal, y []int) error
	Predict(X [][]decimal.Decimal) []int
	PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal
	GetType() string
	GetName() string
	GetParams() map[string]any
	GetClasses() []int
	Reset()
}

// Regressor is the continuous-target counterpart of Model.
type Regressor interface {
	Fit(X [][]decimal.Decimal, y []float64) error
	Predict(X [][]decimal.Decimal) []float64
	GetName() string
	GetParams() map[string]any
	Reset()
}

type BaseModel struct {
	Name    string
	Params  map[string]any
	Classes []int
}

func (bm *BaseModel) GetType() string {
	return bm.Name
}

func (bm *BaseModel) GetName() string {
	return bm.Name
}

func (bm *BaseModel) GetParams() map[string]any {
	return bm.Params
}

// ExtractClasses returns the distinct labels in ascending order.
func ExtractClasses(y []int) []int {
	classMap := make(map[int]bool)
	for _, label := range y {
		classMap[label] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	return classes
}

// CheckDataset is the shared precondition of every Fit: at least one row,
// one target per row and rows of equal width.
func CheckDataset(X [][]decimal.Decimal, targets int) error {
	if len(X) != targets {
		return fmt.Errorf("%w: %d samples but %d targets", ErrDimensionMismatch, len(X), targets)
	}
	if len(X) == 0 {
		return ErrEmptyDataset
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimensionMismatch, i, len(row), width)
		}
	}
	return nil
}

// argmaxVotes picks the class with most votes; ties go to the smaller class.
func argmaxVotes(classes []int, votes map[int]int) int {
	best, bestVotes := classes[0], -1
	for _, class := range classes {
		if votes[class] > bestVotes {
			best, bestVotes = class, votes[class]
		}
	}
	return best
}
