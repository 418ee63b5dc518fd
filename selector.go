package roulette

// WeightedSelector draws a winner index from calculated probabilities
type WeightedSelector struct {
	generator RandomGenerator
}

// NewWeightedSelector creates a selector; a nil generator means a SecureRandomGenerator
func NewWeightedSelector(generator RandomGenerator) *WeightedSelector {
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}
	return &WeightedSelector{generator: generator}
}

// Select returns the index of the winner.
//
// A non-positive total falls back to a uniform draw. When float drift leaves r beyond the
// last accumulation the last index wins.
func (s *WeightedSelector) Select(probabilities []float64) (int, error) {
	count := len(probabilities)
	if count == 0 {
		return -1, ErrEmptyItems
	}
	if count == 1 {
		return 0, nil
	}

	var total float64
	for _, p := range probabilities {
		total += p
	}

	if total <= 0 {
		index, err := s.generator.GenerateInRange(0, count-1)
		if err != nil {
			return -1, ErrRandomSourceFailure.WithCause(err)
		}
		return index, nil
	}

	f, err := s.generator.GenerateFloat()
	if err != nil {
		return -1, ErrRandomSourceFailure.WithCause(err)
	}
	r := f * total

	var acc float64
	for i, p := range probabilities {
		acc += p
		if r < acc {
			return i, nil
		}
	}

	return count - 1, nil
}

// SelectFrom draws a winner from a distribution snapshot
func (s *WeightedSelector) SelectFrom(d *Distribution) (int, error) {
	if d == nil {
		return -1, ErrEmptyItems
	}
	return s.Select(d.Probabilities())
}
