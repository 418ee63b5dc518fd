package roulette

import (
	"math"
)

// Sector is one resolved wedge: the item, its calculated probability and its arc.
// Angles are radians in canvas orientation, laid out clockwise from PointerAngle.
type Sector struct {
	Index       int
	Name        string
	Color       string
	Probability float64
	Start       float64
	End         float64
}

// Width returns the arc width of the sector
func (s Sector) Width() float64 { return s.End - s.Start }

// Mid returns the angle halfway through the sector
func (s Sector) Mid() float64 { return s.Start + (s.End-s.Start)/2 }

// Arc is a (start, end) pair produced by Layout
type Arc struct {
	Start float64
	End   float64
}

// Layout lays out arcs for the given probabilities starting at PointerAngle.
// Every width is derived from its own probability and every start is the previous end,
// so there are no gaps or overlaps.
func Layout(probabilities []float64) []Arc {
	arcs := make([]Arc, len(probabilities))
	start := PointerAngle
	for i, p := range probabilities {
		end := start + SectorWidth(p)
		arcs[i] = Arc{Start: start, End: end}
		start = end
	}
	return arcs
}

// SectorWidth converts a probability in percent into an arc width
func SectorWidth(probability float64) float64 {
	return probability / TotalProbability * FullCircle
}

// Distribution is an immutable snapshot of a profile's items resolved for one spin.
// The settings editor keeps mutating its own copy; a running session only ever reads this.
type Distribution struct {
	sectors    []Sector
	fixedTotal float64
	total      float64
}

// NewDistribution normalizes items and lays out their sectors.
// It refuses empty input, negative or non-finite probabilities and fixed totals above 100 so
// nothing invalid reaches the selector.
func NewDistribution(items []Item) (*Distribution, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	n := Normalize(items)
	if n.FixedTotal > TotalProbability+ProbabilityEpsilon {
		return nil, ErrFixedTotalExceeded.WithDetails("fixed total exceeds 100%")
	}
	for _, it := range n.Items {
		if math.IsNaN(it.CalculatedProbability) || math.IsInf(it.CalculatedProbability, 0) {
			return nil, ErrInvalidProbability.WithDetails("item " + it.Name)
		}
		// 负宽度的扇区会让后面的扇区越过整圈
		if it.CalculatedProbability < 0 {
			return nil, ErrInvalidProbability.WithDetails("item " + it.Name + " has a negative probability")
		}
	}

	arcs := Layout(n.Probabilities())
	d := &Distribution{
		sectors:    make([]Sector, len(items)),
		fixedTotal: n.FixedTotal,
		total:      n.Total,
	}
	for i, it := range n.Items {
		d.sectors[i] = Sector{
			Index:       i,
			Name:        it.Name,
			Color:       ResolveColor(it.Item, i),
			Probability: it.CalculatedProbability,
			Start:       arcs[i].Start,
			End:         arcs[i].End,
		}
	}
	return d, nil
}

// Len returns the number of sectors
func (d *Distribution) Len() int { return len(d.sectors) }

// Total returns the sum of calculated probabilities
func (d *Distribution) Total() float64 { return d.total }

// FixedTotal returns the sum of the fixed probabilities
func (d *Distribution) FixedTotal() float64 { return d.fixedTotal }

// Sector returns the sector at index
func (d *Distribution) Sector(index int) (Sector, bool) {
	if index < 0 || index >= len(d.sectors) {
		return Sector{}, false
	}
	return d.sectors[index], true
}

// Sectors returns a copy of all sectors
func (d *Distribution) Sectors() []Sector {
	out := make([]Sector, len(d.sectors))
	copy(out, d.sectors)
	return out
}

// Probabilities returns the calculated probabilities in sector order
func (d *Distribution) Probabilities() []float64 {
	probs := make([]float64, len(d.sectors))
	for i, s := range d.sectors {
		probs[i] = s.Probability
	}
	return probs
}

// TargetStopAngle returns the rotation that brings the middle of the winner's sector
// under the pointer, without decorative turns. The value lies in [-2π, 0).
func (d *Distribution) TargetStopAngle(winner int) (float64, error) {
	s, ok := d.Sector(winner)
	if !ok {
		return 0, ErrInvalidWinnerIndex.WithMetadata("winner_index", winner)
	}
	return PointerAngle - s.Mid(), nil
}

// FakeOffset returns the summed widths of the steps sectors following winner, wrapping
// around the list. A fake spin overshoots the true target by this much.
func (d *Distribution) FakeOffset(winner, steps int) float64 {
	n := len(d.sectors)
	if n == 0 || winner < 0 {
		return 0
	}
	var offset float64
	for i := 1; i <= steps; i++ {
		offset += d.sectors[(winner+i)%n].Width()
	}
	return offset
}

// SectorAt returns the index of the sector under the pointer when the wheel is rotated by
// rotation, or -1 when no sector covers it (a distribution totalling less than 100).
func (d *Distribution) SectorAt(rotation float64) int {
	return Frame{Angle: rotation, Sectors: d.sectors}.PointerSector()
}

// NormalizeAngle folds an angle into [0, 2π)
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, FullCircle)
	if a < 0 {
		a += FullCircle
	}
	if a >= FullCircle {
		a = 0
	}
	return a
}

// AngularDistance returns the smallest absolute difference between two angles
func AngularDistance(a, b float64) float64 {
	d := NormalizeAngle(a - b)
	if d > math.Pi {
		d = FullCircle - d
	}
	return d
}
