package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// NaiveBayes is a Gaussian naive Bayes classifier. Means and variances are
// kept as decimals; likelihoods are evaluated in log space.
type NaiveBayes struct {
	BaseModel
	ClassLogPriors map[int]float64
	FeatureMeans   map[int][]decimal.Decimal
	FeatureVars    map[int][]decimal.Decimal
	VarSmoothing   decimal.Decimal
}

func NewNaiveBayes(varSmoothing float64) *NaiveBayes {
	if varSmoothing <= 0 {
		varSmoothing = 1e-9
	}
	return &NaiveBayes{
		VarSmoothing: decimal.NewFromFloat(varSmoothing),
		BaseModel: BaseModel{
			Name: "NaiveBayes",
			Params: map[string]any{
				"var_smoothing": varSmoothing,
			},
		},
	}
}

func (nb *NaiveBayes) Fit(X [][]decimal.Decimal, y []int) error {
	if err := CheckDataset(X, len(y)); err != nil {
		return err
	}
	nb.Classes = ExtractClasses(y)
	nFeatures := len(X[0])

	nb.ClassLogPriors = make(map[int]float64)
	nb.FeatureMeans = make(map[int][]decimal.Decimal)
	nb.FeatureVars = make(map[int][]decimal.Decimal)

	for _, class := range nb.Classes {
		var rows [][]decimal.Decimal
		for i, label := range y {
			if label == class {
				rows = append(rows, X[i])
			}
		}
		if len(rows) == 0 {
			return fmt.Errorf("class %d has no samples", class)
		}

		count := decimal.NewFromInt(int64(len(rows)))
		nb.ClassLogPriors[class] = math.Log(float64(len(rows)) / float64(len(y)))
		nb.FeatureMeans[class] = make([]decimal.Decimal, nFeatures)
		nb.FeatureVars[class] = make([]decimal.Decimal, nFeatures)

		for j := 0; j < nFeatures; j++ {
			sum := decimal.Zero
			for _, row := range rows {
				sum = sum.Add(row[j])
			}
			mean := sum.Div(count)

			variance := decimal.Zero
			for _, row := range rows {
				diff := row[j].Sub(mean)
				variance = variance.Add(diff.Mul(diff))
			}
			nb.FeatureMeans[class][j] = mean
			nb.FeatureVars[class][j] = variance.Div(count).Add(nb.VarSmoothing)
		}
	}

	return nil
}

func (nb *NaiveBayes) logLikelihoods(sample []decimal.Decimal) []float64 {
	out := make([]float64, len(nb.Classes))
	for k, class := range nb.Classes {
		logProb := nb.ClassLogPriors[class]
		for j, feature := range sample {
			logProb += logGaussian(
				feature.InexactFloat64(),
				nb.FeatureMeans[class][j].InexactFloat64(),
				nb.FeatureVars[class][j].InexactFloat64(),
			)
		}
		out[k] = logProb
	}
	return out
}

func logGaussian(x, mean, variance float64) float64 {
	diff := x - mean
	return -0.5*math.Log(2*math.Pi*variance) - (diff*diff)/(2*variance)
}

func (nb *NaiveBayes) Predict(X [][]decimal.Decimal) []int {
	predictions := make([]int, len(X))
	for i, sample := range X {
		best := 0
		logProbs := nb.logLikelihoods(sample)
		for k, lp := range logProbs {
			if lp > logProbs[best] {
				best = k
			}
		}
		predictions[i] = nb.Classes[best]
	}
	return predictions
}

// PredictProba normalises the class log likelihoods with log-sum-exp.
func (nb *NaiveBayes) PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal {
	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		logProbs := nb.logLikelihoods(sample)
		maxLogProb := math.Inf(-1)
		for _, lp := range logProbs {
			maxLogProb = math.Max(maxLogProb, lp)
		}

		sumExp := 0.0
		for _, lp := range logProbs {
			sumExp += math.Exp(lp - maxLogProb)
		}

		proba[i] = make([]decimal.Decimal, len(nb.Classes))
		for j, lp := range logProbs {
			proba[i][j] = decimal.NewFromFloat(math.Exp(lp-maxLogProb) / sumExp)
		}
	}
	return proba
}

func (nb *NaiveBayes) GetClasses() []int {
	return nb.Classes
}

func (nb *NaiveBayes) Reset() {
	nb.ClassLogPriors = nil
	nb.FeatureMeans = nil
	nb.FeatureVars = nil
	nb.Classes = nil
}
