package features

import (
	"fmt"
	"sort"
)

// LabelEncoder maps category strings to dense integers. Classes is sorted, so
// the encoding of a value is its index in Classes.
type LabelEncoder struct {
	Classes []string
}

// FitLabelEncoder builds an encoder over the distinct values.
func FitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, 16)
	classes := make([]string, 0, 16)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Transform returns the encoding of value and whether it was seen during fit.
func (e *LabelEncoder) Transform(value string) (int, bool) {
	i := sort.SearchStrings(e.Classes, value)
	if i < len(e.Classes) && e.Classes[i] == value {
		return i, true
	}
	return 0, false
}

// TransformOrDefault encodes value, falling back to 0 (the first class) for
// values not seen during fit.
func (e *LabelEncoder) TransformOrDefault(value string) int {
	code, _ := e.Transform(value)
	return code
}

// TransformAll encodes values that must all have been seen during fit.
func (e *LabelEncoder) TransformAll(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		code, ok := e.Transform(v)
		if !ok {
			return nil, fmt.Errorf("encode %q: unseen label", v)
		}
		out[i] = code
	}
	return out, nil
}

// Inverse returns the class string for code.
func (e *LabelEncoder) Inverse(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
