package forest

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrUndefinedAUC is returned when ROC AUC is requested for a single class.
var ErrUndefinedAUC = errors.New("roc auc is undefined when only one class is present")

// Classifier is the part of a fitted model evaluation needs.
type Classifier interface {
	PredictProba(x []float64) [2]float64
	Predict(x []float64) int
}

// ClassMetrics holds precision, recall, and F1 for one class.
type ClassMetrics struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Importance pairs a feature name with its importance.
type Importance struct {
	Feature    string
	Importance float64
}

// Report summarizes model quality on a held-out set.
type Report struct {
	ROCAUC   float64
	Accuracy float64
	Classes  [2]ClassMetrics
	// Confusion is indexed [true class][predicted class].
	Confusion   [2][2]int
	Importances []Importance
	TestRows    int
}

// Evaluate scores m on (x, y). names labels the importance entries and must
// follow the feature order; importances are omitted when m does not expose
// them. An undefined AUC is reported as zero.
func Evaluate(m Classifier, x [][]float64, y []int, names []string) Report {
	scores := make([]float64, len(x))
	var r Report
	r.TestRows = len(x)
	correct := 0
	for i, row := range x {
		scores[i] = m.PredictProba(row)[1]
		pred := m.Predict(row)
		r.Confusion[y[i]][pred]++
		if pred == y[i] {
			correct++
		}
	}
	if len(x) > 0 {
		r.Accuracy = float64(correct) / float64(len(x))
	}
	if auc, err := ROCAUC(y, scores); err == nil {
		r.ROCAUC = auc
	}

	for c := range 2 {
		tp := float64(r.Confusion[c][c])
		fp := float64(r.Confusion[1-c][c])
		fn := float64(r.Confusion[c][1-c])
		cm := ClassMetrics{Class: c, Support: r.Confusion[c][0] + r.Confusion[c][1]}
		if tp+fp > 0 {
			cm.Precision = tp / (tp + fp)
		}
		if tp+fn > 0 {
			cm.Recall = tp / (tp + fn)
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		r.Classes[c] = cm
	}

	if fi, ok := m.(interface{ FeatureImportances() []float64 }); ok {
		r.Importances = RankImportances(names, fi.FeatureImportances())
	}
	return r
}

// RankImportances pairs names with values and sorts by importance, highest
// first. Ties keep feature order.
func RankImportances(names []string, values []float64) []Importance {
	out := make([]Importance, 0, len(values))
	for i, v := range values {
		name := fmt.Sprintf("f%d", i)
		if i < len(names) {
			name = names[i]
		}
		out = append(out, Importance{Feature: name, Importance: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

// ROCAUC computes the area under the ROC curve for binary labels from the
// Mann-Whitney rank statistic, averaging ranks across tied scores.
func ROCAUC(y []int, scores []float64) (float64, error) {
	n := len(y)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	var rankSum float64
	for i, label := range y {
		if label == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, ErrUndefinedAUC
	}
	p, q := float64(pos), float64(neg)
	return (rankSum - p*(p+1)/2) / (p * q), nil
}

// Format writes the report as a plain-text table.
func (r Report) Format(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "ROC AUC Score: %.4f\n\n", r.ROCAUC)
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%14d %10.2f %10.2f %10.2f %10d\n", c.Class, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n\n", "accuracy", "", "", r.Accuracy, r.TestRows)
	fmt.Fprintf(&b, "Confusion Matrix:\n[[%d %d]\n [%d %d]]\n", r.Confusion[0][0], r.Confusion[0][1], r.Confusion[1][0], r.Confusion[1][1])
	if len(r.Importances) > 0 {
		b.WriteString("\nTop 10 Most Important Features:\n")
		for i, imp := range r.Importances {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "%-18s %.6f\n", imp.Feature, imp.Importance)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
