package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var ingredientLabels = [...]string{
	"onion", "garlic", "tomato", "potato", "chickpeas", "coconut milk", "paneer",
	"chicken", "rice", "yogurt", "butter", "cream", "egg", "parmesan", "bacon",
	"mozzarella", "basil", "cheddar", "bell pepper", "avocado", "cilantro",
	"mushroom", "cabbage", "pineapple", "grapes", "orange",
}

// ErrEmptyScores is returned when a model produces no output values.
var ErrEmptyScores = errors.New("empty score vector")

type Labels []string

// IngredientLabels returns the classes of the ingredient model in training order.
func IngredientLabels() Labels {
	labels := make(Labels, len(ingredientLabels))
	copy(labels, ingredientLabels[:])
	return labels
}

func (l Labels) Lookup(idx int) (string, error) {
	if idx < 0 || idx >= len(l) {
		return "", fmt.Errorf("class index %d out of range for %d labels", idx, len(l))
	}
	return l[idx], nil
}

func (l Labels) Random(rng *rand.Rand) string {
	if len(l) == 0 {
		return ""
	}
	if rng == nil {
		return l[rand.IntN(len(l))]
	}
	return l[rng.IntN(len(l))]
}

// NewRand returns a seeded source for Random. A zero seed is non-deterministic.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// ArgMax returns the index of the largest score. Ties resolve to the lowest
// index and NaN scores are skipped; an all-NaN vector yields 0.
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, ErrEmptyScores
	}

	maxIdx := -1
	var maxVal float32
	for i, val := range scores {
		if math.IsNaN(float64(val)) {
			continue
		}
		if maxIdx < 0 || val > maxVal {
			maxIdx = i
			maxVal = val
		}
	}
	if maxIdx < 0 {
		return 0, nil
	}
	return maxIdx, nil
}

// Classify turns a raw score vector into a Prediction. The arg-max runs over
// the whole vector, so a winning index with no label is an error.
func Classify(scores []float32, labels Labels) (*Prediction, error) {
	maxIdx, err := ArgMax(scores)
	if err != nil {
		return nil, err
	}

	class, err := labels.Lookup(maxIdx)
	if err != nil {
		return nil, err
	}

	predictions := make(map[string]float32, len(labels))
	for i, val := range scores {
		if i < len(labels) {
			predictions[labels[i]] = val
		}
	}

	return &Prediction{
		Class:       class,
		Index:       maxIdx,
		Confidence:  scores[maxIdx],
		Predictions: predictions,
	}, nil
}
