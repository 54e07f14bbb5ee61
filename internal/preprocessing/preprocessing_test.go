package preprocessing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHotEncoderFirstSeenOrder(t *testing.T) {
	oh := NewOneHotEncoder("")
	X, err := oh.FitTransform([][]string{{"z", "a", "z", "m"}})
	require.NoError(t, err)

	assert.Equal(t, HandleUnknownIgnore, oh.HandleUnknown)
	assert.Equal(t, [][]string{{"z", "a", "m"}}, oh.Categories)
	assert.Equal(t, []string{"1 0 0", "0 1 0", "1 0 0", "0 0 1"}, strRows(X))
}

func TestOneHotEncoderUnknownHandling(t *testing.T) {
	ignore := NewOneHotEncoder(HandleUnknownIgnore)
	ignore.Fit([][]string{{"a", "b"}})
	X, err := ignore.Transform([][]string{{"c"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0 0"}, strRows(X))

	strict := NewOneHotEncoder(HandleUnknownError)
	strict.Fit([][]string{{"a", "b"}})
	_, err = strict.Transform([][]string{{"c"}})
	assert.Error(t, err)

	_, err = strict.Transform([][]string{{"a"}, {"b"}})
	assert.ErrorIs(t, err, ErrColumnMismatch)
}

func TestOneHotEncoderWithoutIndex(t *testing.T) {
	decoded := &OneHotEncoder{
		Categories:    [][]string{{"x", "y"}},
		HandleUnknown: HandleUnknownIgnore,
		IsFitted:      true,
	}
	X, err := decoded.Transform([][]string{{"y", "x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0 1", "1 0"}, strRows(X))
}

func TestScaler(t *testing.T) {
	X := [][]decimal.Decimal{
		{decimal.NewFromInt(0), decimal.NewFromInt(5)},
		{decimal.NewFromInt(10), decimal.NewFromInt(5)},
	}

	minmax := NewScaler(ScaleNormalized)
	out, err := minmax.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []string{"0 0", "1 0"}, strRows(out))
	assert.Equal(t, "10", X[1][0].String(), "input untouched")

	standard := NewScaler(ScaleStandardized)
	out, err = standard.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []string{"-1 0", "1 0"}, strRows(out))

	raw := NewScaler(ScaleRaw)
	out, err = raw.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, strRows(X), strRows(out))

	_, err = NewScaler("log").FitTransform(X)
	assert.Error(t, err)

	_, err = NewScaler(ScaleRaw).Transform(X)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLabelEncoderDeterministic(t *testing.T) {
	le := NewLabelEncoder()
	y, err := le.FitTransform([]string{"risky", "safe", "risky", "default"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 1, 0}, y)
	assert.Equal(t, []string{"default", "risky", "safe"}, le.Classes())

	labels, err := le.InverseTransform([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"safe", "default"}, labels)

	_, err = le.Transform([]string{"unseen"})
	assert.Error(t, err)
}

func TestParseUnsupportedPolicy(t *testing.T) {
	p, err := ParseUnsupportedPolicy("drop")
	require.NoError(t, err)
	assert.Equal(t, DropUnsupported, p)
	assert.Equal(t, "drop", p.String())

	p, err = ParseUnsupportedPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RejectUnsupported, p)

	_, err = ParseUnsupportedPolicy("coerce")
	assert.Error(t, err)
}
