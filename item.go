package roulette

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Item represents one wedge of the wheel as stored in a profile
type Item struct {
	Name          string   `json:"name"`          // Display text
	Probability   *float64 `json:"probability"`   // Fixed share in percent, nil means auto-distribute
	Color         string   `json:"color"`         // Display colour
	IsCustomColor bool     `json:"isCustomColor"` // Whether Color was picked by the user
}

// Fixed returns a pointer suitable for Item.Probability
func Fixed(p float64) *float64 { return &p }

// IsFixed reports whether the item carries an explicit probability
func (it Item) IsFixed() bool { return it.Probability != nil }

// Validate validates the item data
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrEmptyItemName
	}
	if it.Probability != nil {
		p := *it.Probability
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > TotalProbability {
			return ErrInvalidProbability.WithDetails(fmt.Sprintf("item %q: %v", it.Name, p))
		}
	}
	return nil
}

// ResolvedItem is an item with its normalized probability
type ResolvedItem struct {
	Item
	CalculatedProbability float64
}

// Normalization is the outcome of one normalization pass
type Normalization struct {
	Items      []ResolvedItem
	FixedTotal float64 // Sum of fixed probabilities, never clamped
	Total      float64 // Sum of calculated probabilities
	AutoCount  int
}

// Probabilities returns the calculated probabilities in item order
func (n Normalization) Probabilities() []float64 {
	probs := make([]float64, len(n.Items))
	for i, it := range n.Items {
		probs[i] = it.CalculatedProbability
	}
	return probs
}

// Normalize resolves calculated probabilities for items.
//
// Auto items share what remains of 100 after the fixed items. When the result lands within
// RoundingTolerance of 100 the last auto item absorbs the drift. Fixed values pass through
// untouched, including negative ones and totals above 100; rejecting those is ValidateItems' job.
func Normalize(items []Item) Normalization {
	result := Normalization{Items: make([]ResolvedItem, len(items))}
	if len(items) == 0 {
		return result
	}

	for _, it := range items {
		if it.IsFixed() {
			result.FixedTotal += *it.Probability
		} else {
			result.AutoCount++
		}
	}

	remaining := TotalProbability - result.FixedTotal
	var autoShare float64
	if result.AutoCount > 0 && remaining > 0 {
		autoShare = remaining / float64(result.AutoCount)
	}

	lastAuto := -1
	for i, it := range items {
		resolved := ResolvedItem{Item: it}
		if it.IsFixed() {
			resolved.CalculatedProbability = *it.Probability
		} else {
			resolved.CalculatedProbability = math.Max(0, autoShare)
			lastAuto = i
		}
		result.Items[i] = resolved
		result.Total += resolved.CalculatedProbability
	}

	// 舍入误差修正: only the last auto item, only inside the narrow window
	if lastAuto >= 0 && remaining > 0 && math.Abs(result.Total-TotalProbability) < RoundingTolerance {
		result.Items[lastAuto].CalculatedProbability -= result.Total - TotalProbability
		result.Total = TotalProbability
	}

	return result
}

// ValidateItems reports every problem that blocks saving a profile, joined into one error
func ValidateItems(items []Item) error {
	var errs []error

	var fixedTotal float64
	emptyName := false
	for _, it := range items {
		if it.IsFixed() {
			fixedTotal += *it.Probability
		}
		if err := it.Validate(); err != nil {
			if errors.Is(err, ErrEmptyItemName) {
				emptyName = true
				continue
			}
			errs = append(errs, err)
		}
	}

	if fixedTotal > TotalProbability+ProbabilityEpsilon {
		errs = append([]error{ErrFixedTotalExceeded.WithDetails(fmt.Sprintf("fixed total %.2f%%", fixedTotal))}, errs...)
	}
	if emptyName {
		errs = append(errs, ErrEmptyItemName)
	}

	return errors.Join(errs...)
}

// ResolveColor returns the colour an item is drawn with at the given position
func ResolveColor(it Item, index int) string {
	if it.IsCustomColor && it.Color != "" {
		return it.Color
	}
	return Palette[index%len(Palette)]
}

// AssignColors writes the automatic palette colour into every non-custom item
func AssignColors(items []Item) {
	for i := range items {
		items[i].Color = ResolveColor(items[i], i)
	}
}
