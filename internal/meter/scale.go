package meter

import (
	"fmt"
	"math"
)

// DefaultMinusInfinityDB is the decibel floor of the default scale.
const DefaultMinusInfinityDB = -96.0

// Scale maps between linear level, decibel level and a normalized [0, 1]
// display proportion. The mapping is piecewise linear over the division
// points: the configured floor sits at proportion 0, each adjacent pair of
// anchors spans an equal-width slice, and the top division (0 dBFS) sits at
// proportion 1. A Scale is immutable after construction and may be shared
// across any number of subscribers.
type Scale struct {
	minusInfinityDB float64
	divisions       []float64
	anchors         []float64
}

// NewScale validates and builds a scale. Divisions must be finite and
// strictly ascending, starting with the lowest level, and minusInfinityDB
// must lie below the lowest division. An empty division list yields a
// single linear segment from the floor up to 0 dB.
func NewScale(minusInfinityDB float64, divisions []float64) (*Scale, error) {
	if math.IsNaN(minusInfinityDB) || math.IsInf(minusInfinityDB, 0) {
		return nil, fmt.Errorf("minus infinity must be finite, got %v", minusInfinityDB)
	}
	for i, d := range divisions {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("division %d must be finite, got %v", i, d)
		}
		if i > 0 && d <= divisions[i-1] {
			return nil, fmt.Errorf("divisions must be strictly ascending, got %v after %v", d, divisions[i-1])
		}
	}
	if len(divisions) > 0 && minusInfinityDB >= divisions[0] {
		return nil, fmt.Errorf("minus infinity %v must be below the lowest division %v", minusInfinityDB, divisions[0])
	}

	anchors := make([]float64, 0, len(divisions)+1)
	anchors = append(anchors, minusInfinityDB)
	if len(divisions) == 0 {
		anchors = append(anchors, 0)
	} else {
		anchors = append(anchors, divisions...)
	}

	s := &Scale{
		minusInfinityDB: minusInfinityDB,
		divisions:       append([]float64(nil), divisions...),
		anchors:         anchors,
	}
	return s, nil
}

var defaultScale = &Scale{
	minusInfinityDB: DefaultMinusInfinityDB,
	anchors:         []float64{DefaultMinusInfinityDB, 0},
}

// DefaultScale returns the process-wide immutable default scale with a
// -96 dB floor and no intermediate divisions.
func DefaultScale() *Scale {
	return defaultScale
}

// ProportionForLevel converts a linear level in [-1, 1] to a proportion in
// [0, 1]. Silence maps to the configured floor.
func (s *Scale) ProportionForLevel(level float64) float64 {
	a := math.Abs(level)
	if a <= 0 {
		return 0
	}
	return s.ProportionForLevelDB(20 * math.Log10(a))
}

// ProportionForLevelDB converts a decibel level to a proportion in [0, 1].
// Levels at or below the floor clamp to 0, levels at or above the top
// division clamp to 1.
func (s *Scale) ProportionForLevelDB(levelDB float64) float64 {
	n := len(s.anchors)
	if levelDB <= s.anchors[0] {
		return 0
	}
	if levelDB >= s.anchors[n-1] {
		return 1
	}
	width := 1.0 / float64(n-1)
	for i := 0; i < n-1; i++ {
		lo, hi := s.anchors[i], s.anchors[i+1]
		if levelDB < hi {
			return (float64(i) + (levelDB-lo)/(hi-lo)) * width
		}
	}
	return 1
}

// LevelDBForProportion is the inverse of ProportionForLevelDB. Proportions
// outside [0, 1] clamp to the floor and top division respectively.
func (s *Scale) LevelDBForProportion(proportion float64) float64 {
	n := len(s.anchors)
	if proportion <= 0 {
		return s.anchors[0]
	}
	if proportion >= 1 {
		return s.anchors[n-1]
	}
	pos := proportion * float64(n-1)
	i := int(pos)
	if i >= n-1 {
		return s.anchors[n-1]
	}
	frac := pos - float64(i)
	return s.anchors[i] + frac*(s.anchors[i+1]-s.anchors[i])
}

// Divisions returns the configured division points, lowest first.
func (s *Scale) Divisions() []float64 {
	return append([]float64(nil), s.divisions...)
}

// MinusInfinityDB returns the configured decibel floor.
func (s *Scale) MinusInfinityDB() float64 {
	return s.minusInfinityDB
}
