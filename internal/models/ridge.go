package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
)

// RidgeRegression fits y = X·w + b with an L2 penalty on w. The intercept is
// not penalised: features and target are centred before solving
// (XᵀX + αI) w = Xᵀy.
type RidgeRegression struct {
	Name         string
	Alpha        float64
	Coefficients []float64
	Intercept    float64
}

func NewRidgeRegression(alpha float64) *RidgeRegression {
	if alpha < 0 {
		alpha = 1.0
	}
	return &RidgeRegression{Name: "RidgeRegression", Alpha: alpha}
}

func (r *RidgeRegression) Fit(X [][]decimal.Decimal, y []float64) error {
	if err := CheckDataset(X, len(y)); err != nil {
		return err
	}

	n, p := len(X), len(X[0])
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	if p == 0 {
		r.Coefficients = nil
		r.Intercept = yMean
		return nil
	}

	means := make([]float64, p)
	raw := make([]float64, 0, n*p)
	for _, row := range X {
		for j, v := range row {
			f := v.InexactFloat64()
			means[j] += f
			raw = append(raw, f)
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			raw[i*p+j] -= means[j]
		}
	}

	centred := make([]float64, n)
	for i, v := range y {
		centred[i] = v - yMean
	}

	Xc := mat.NewDense(n, p, raw)
	yc := mat.NewVecDense(n, centred)

	var gram mat.Dense
	gram.Mul(Xc.T(), Xc)
	for j := 0; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(Xc.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		return fmt.Errorf("ridge solve failed: %w", err)
	}

	r.Coefficients = make([]float64, p)
	r.Intercept = yMean
	for j := 0; j < p; j++ {
		r.Coefficients[j] = w.AtVec(j)
		r.Intercept -= r.Coefficients[j] * means[j]
	}
	return nil
}

func (r *RidgeRegression) Predict(X [][]decimal.Decimal) []float64 {
	predictions := make([]float64, len(X))
	for i, row := range X {
		pred := r.Intercept
		for j, w := range r.Coefficients {
			pred += w * row[j].InexactFloat64()
		}
		predictions[i] = pred
	}
	return predictions
}

func (r *RidgeRegression) GetName() string {
	return r.Name
}

func (r *RidgeRegression) GetParams() map[string]any {
	return map[string]any{"alpha": r.Alpha}
}

func (r *RidgeRegression) Reset() {
	r.Coefficients = nil
	r.Intercept = 0
}
