package models

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	DistanceEuclidean = "euclidean"
	DistanceManhattan = "manhattan"
)

type KNN struct {
	BaseModel
	K        int
	Distance string
	XTrain   [][]float64
	YTrain   []int
}

func NewKNN(k int, distance string) *KNN {
	if k <= 0 {
		k = 5
	}
	if distance != DistanceEuclidean && distance != DistanceManhattan {
		distance = DistanceEuclidean
	}

	return &KNN{
		K:        k,
		Distance: distance,
		BaseModel: BaseModel{
			Name: "KNN",
			Params: map[string]any{
				"k":        k,
				"distance": distance,
			},
		},
	}
}

// Fit memorises a float copy of the training rows.
func (knn *KNN) Fit(X [][]decimal.Decimal, y []int) error {
	if err := CheckDataset(X, len(y)); err != nil {
		return err
	}

	knn.XTrain = make([][]float64, len(X))
	for i := range X {
		knn.XTrain[i] = toFloats(X[i])
	}
	knn.YTrain = append([]int(nil), y...)
	knn.Classes = ExtractClasses(y)
	return nil
}

func (knn *KNN) Predict(X [][]decimal.Decimal) []int {
	predictions := make([]int, len(X))
	for i, sample := range X {
		predictions[i] = argmaxVotes(knn.Classes, knn.votes(sample))
	}
	return predictions
}

func (knn *KNN) PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal {
	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		votes := knn.votes(sample)
		total := 0
		for _, v := range votes {
			total += v
		}
		proba[i] = make([]decimal.Decimal, len(knn.Classes))
		for j, class := range knn.Classes {
			proba[i][j] = decimal.NewFromInt(int64(votes[class])).Div(decimal.NewFromInt(int64(total)))
		}
	}
	return proba
}

func (knn *KNN) votes(sample []decimal.Decimal) map[int]int {
	type neighbor struct {
		index    int
		distance float64
	}

	point := toFloats(sample)
	neighbors := make([]neighbor, len(knn.XTrain))
	for i, train := range knn.XTrain {
		neighbors[i] = neighbor{index: i, distance: knn.distance(point, train)}
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})

	votes := make(map[int]int)
	for i := 0; i < knn.K && i < len(neighbors); i++ {
		votes[knn.YTrain[neighbors[i].index]]++
	}
	return votes
}

func (knn *KNN) distance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		if knn.Distance == DistanceManhattan {
			sum += math.Abs(diff)
		} else {
			sum += diff * diff
		}
	}
	if knn.Distance == DistanceManhattan {
		return sum
	}
	return math.Sqrt(sum)
}

func (knn *KNN) GetClasses() []int {
	return knn.Classes
}

func (knn *KNN) Reset() {
	knn.XTrain = nil
	knn.YTrain = nil
	knn.Classes = nil
}

func toFloats(row []decimal.Decimal) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v.InexactFloat64()
	}
	return out
}
