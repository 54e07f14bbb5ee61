package evaluation

import (
	"fmt"
	"math"
)

type ClassificationMetrics struct {
	Accuracy          float64              `json:"accuracy"`
	BalancedAccuracy  float64              `json:"balanced_accuracy"`
	MacroPrecision    float64              `json:"macro_precision"`
	MacroRecall       float64              `json:"macro_recall"`
	MacroF1           float64              `json:"macro_f1"`
	WeightedPrecision float64              `json:"weighted_precision"`
	WeightedRecall    float64              `json:"weighted_recall"`
	WeightedF1        float64              `json:"weighted_f1"`
	PerClassMetrics   map[int]ClassMetrics `json:"per_class_metrics"`
	ConfusionMatrix   [][]int              `json:"confusion_matrix"`
	ClassSupport      map[int]int          `json:"class_support"`
	NumSamples        int                  `json:"num_samples"`
	NumClasses        int                  `json:"num_classes"`
}

type ClassMetrics struct {
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	F1Score     float64 `json:"f1_score"`
	Specificity float64 `json:"specificity"`
	Support     int     `json:"support"`
}

// CalculateMetrics scores predictions against the given class list. Rows of
// the confusion matrix are true classes, columns predicted ones, both in the
// order of classes. It returns nil when the inputs are empty or misaligned.
func CalculateMetrics(yTrue, yPred []int, classes []int) *ClassificationMetrics {
	if len(yTrue) != len(yPred) || len(yTrue) == 0 || len(classes) == 0 {
		return nil
	}

	numSamples := len(yTrue)
	numClasses := len(classes)
	confusion := buildConfusionMatrix(yTrue, yPred, classes)

	classSupport := make(map[int]int)
	for _, class := range yTrue {
		classSupport[class]++
	}

	m := &ClassificationMetrics{
		PerClassMetrics: make(map[int]ClassMetrics),
		ConfusionMatrix: confusion,
		ClassSupport:    classSupport,
		NumSamples:      numSamples,
		NumClasses:      numClasses,
	}

	totalSupport := 0
	for i, class := range classes {
		tp := confusion[i][i]
		fp, fn, tn := 0, 0, 0
		for j := range classes {
			for k := range classes {
				switch {
				case j == i && k != i:
					fn += confusion[j][k]
				case j != i && k == i:
					fp += confusion[j][k]
				case j != i && k != i:
					tn += confusion[j][k]
				}
			}
		}

		precision := safeDivide(float64(tp), float64(tp+fp))
		recall := safeDivide(float64(tp), float64(tp+fn))
		f1 := safeDivide(2*precision*recall, precision+recall)
		support := classSupport[class]

		m.PerClassMetrics[class] = ClassMetrics{
			Precision:   precision,
			Recall:      recall,
			F1Score:     f1,
			Specificity: safeDivide(float64(tn), float64(tn+fp)),
			Support:     support,
		}

		m.MacroPrecision += precision
		m.MacroRecall += recall
		m.MacroF1 += f1
		m.WeightedPrecision += precision * float64(support)
		m.WeightedRecall += recall * float64(support)
		m.WeightedF1 += f1 * float64(support)
		totalSupport += support
	}

	m.MacroPrecision /= float64(numClasses)
	m.MacroRecall /= float64(numClasses)
	m.MacroF1 /= float64(numClasses)
	m.BalancedAccuracy = m.MacroRecall
	m.WeightedPrecision = safeDivide(m.WeightedPrecision, float64(totalSupport))
	m.WeightedRecall = safeDivide(m.WeightedRecall, float64(totalSupport))
	m.WeightedF1 = safeDivide(m.WeightedF1, float64(totalSupport))
	m.Accuracy = Accuracy(yTrue, yPred)

	return m
}

func Accuracy(yTrue, yPred []int) float64 {
	correct := 0
	for i, pred := range yPred {
		if pred == yTrue[i] {
			correct++
		}
	}
	return safeDivide(float64(correct), float64(len(yTrue)))
}

func buildConfusionMatrix(yTrue, yPred []int, classes []int) [][]int {
	matrix := make([][]int, len(classes))
	for i := range matrix {
		matrix[i] = make([]int, len(classes))
	}

	classToIdx := make(map[int]int)
	for i, class := range classes {
		classToIdx[class] = i
	}

	for i := range yTrue {
		trueIdx, trueOk := classToIdx[yTrue[i]]
		predIdx, predOk := classToIdx[yPred[i]]
		if trueOk && predOk {
			matrix[trueIdx][predIdx]++
		}
	}

	return matrix
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0.0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0.0
	}
	return result
}

func (m *ClassificationMetrics) FormatMetrics() string {
	result := fmt.Sprintf("Accuracy: %.4f\n", m.Accuracy)
	result += fmt.Sprintf("Balanced Accuracy: %.4f\n", m.BalancedAccuracy)
	result += fmt.Sprintf("Macro Avg - Precision: %.4f, Recall: %.4f, F1: %.4f\n",
		m.MacroPrecision, m.MacroRecall, m.MacroF1)
	result += fmt.Sprintf("Weighted Avg - Precision: %.4f, Recall: %.4f, F1: %.4f\n",
		m.WeightedPrecision, m.WeightedRecall, m.WeightedF1)
	return result
}

type RegressionMetrics struct {
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	R2         float64 `json:"r2"`
	NumSamples int     `json:"num_samples"`
}

// CalculateRegressionMetrics returns nil when the inputs are empty or
// misaligned. R2 is 0 for a constant target.
func CalculateRegressionMetrics(yTrue, yPred []float64) *RegressionMetrics {
	if len(yTrue) != len(yPred) || len(yTrue) == 0 {
		return nil
	}

	n := float64(len(yTrue))
	mean := 0.0
	for _, v := range yTrue {
		mean += v
	}
	mean /= n

	var absErr, sqErr, total float64
	for i, v := range yTrue {
		diff := v - yPred[i]
		absErr += math.Abs(diff)
		sqErr += diff * diff
		total += (v - mean) * (v - mean)
	}

	r2 := 0.0
	if total > 0 {
		r2 = 1 - sqErr/total
	}

	return &RegressionMetrics{
		MAE:        absErr / n,
		RMSE:       math.Sqrt(sqErr / n),
		R2:         r2,
		NumSamples: len(yTrue),
	}
}

func (m *RegressionMetrics) FormatMetrics() string {
	return fmt.Sprintf("MAE: %.4f\nRMSE: %.4f\nR2: %.4f\n", m.MAE, m.RMSE, m.R2)
}
