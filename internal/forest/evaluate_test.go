package forest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedModel struct {
	scores map[float64]float64
}

func (m fixedModel) PredictProba(x []float64) [2]float64 {
	p := m.scores[x[0]]
	return [2]float64{1 - p, p}
}

func (m fixedModel) Predict(x []float64) int {
	if m.scores[x[0]] > 0.5 {
		return 1
	}
	return 0
}

func TestROCAUC(t *testing.T) {
	auc, err := ROCAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, auc, 1e-12)

	auc, err = ROCAUC([]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-12)

	auc, err = ROCAUC([]int{1, 0}, []float64{0.9, 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)

	_, err = ROCAUC([]int{1, 1}, []float64{0.9, 0.1})
	require.ErrorIs(t, err, ErrUndefinedAUC)
}

func TestEvaluate_ConfusionAndClassMetrics(t *testing.T) {
	m := fixedModel{scores: map[float64]float64{1: 0.9, 2: 0.8, 3: 0.3, 4: 0.6, 5: 0.1}}
	x := [][]float64{{1}, {2}, {3}, {4}, {5}}
	y := []int{1, 1, 1, 0, 0}

	r := Evaluate(m, x, y, nil)

	assert.Equal(t, [2][2]int{{1, 1}, {1, 2}}, r.Confusion)
	assert.InDelta(t, 0.6, r.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3.0, r.Classes[1].Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, r.Classes[1].Recall, 1e-12)
	assert.InDelta(t, 0.5, r.Classes[0].Precision, 1e-12)
	assert.Equal(t, 3, r.Classes[1].Support)
	assert.Equal(t, 2, r.Classes[0].Support)
	assert.Empty(t, r.Importances)
}

func TestRankImportances(t *testing.T) {
	got := RankImportances([]string{"a", "b", "c"}, []float64{0.2, 0.5, 0.3})
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Feature)
	assert.Equal(t, "c", got[1].Feature)
	assert.Equal(t, "a", got[2].Feature)
}

func TestReport_Format(t *testing.T) {
	r := Report{ROCAUC: 0.71234, Accuracy: 0.8, TestRows: 10, Confusion: [2][2]int{{7, 1}, {1, 1}}}
	var b strings.Builder
	require.NoError(t, r.Format(&b))
	assert.Contains(t, b.String(), "ROC AUC Score: 0.7123")
	assert.Contains(t, b.String(), "[[7 1]\n [1 1]]")
}
