package meter

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestNewScaleValidation verifies the constructor rejects malformed
// inputs.
func TestNewScaleValidation(t *testing.T) {
	cases := []struct {
		name      string
		floor     float64
		divisions []float64
	}{
		{"nan floor", math.NaN(), nil},
		{"infinite floor", math.Inf(-1), nil},
		{"nan division", -96, []float64{-20, math.NaN()}},
		{"descending divisions", -96, []float64{-10, -20}},
		{"duplicate divisions", -96, []float64{-20, -20}},
		{"floor above lowest division", -10, []float64{-20, 0}},
		{"floor equal to lowest division", -20, []float64{-20, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewScale(tc.floor, tc.divisions); err == nil {
				t.Errorf("NewScale(%v, %v) succeeded, want error", tc.floor, tc.divisions)
			}
		})
	}
}

// TestScaleProportionAnchors verifies division points land on equal-width
// proportions with the floor at 0 and the top division at 1.
func TestScaleProportionAnchors(t *testing.T) {
	divisions := []float64{-60, -40, -20, -10, -6, -3, 0}
	s, err := NewScale(-96, divisions)
	if err != nil {
		t.Fatalf("NewScale failed: %v", err)
	}

	// 8 anchors (floor + 7 divisions) means 7 equal segments.
	width := 1.0 / 7.0
	for i, d := range divisions {
		want := float64(i+1) * width
		if got := s.ProportionForLevelDB(d); !almostEqual(got, want) {
			t.Errorf("ProportionForLevelDB(%v) = %v, want %v", d, got, want)
		}
	}

	if got := s.ProportionForLevelDB(-96); got != 0 {
		t.Errorf("proportion at floor = %v, want 0", got)
	}
	if got := s.ProportionForLevelDB(-200); got != 0 {
		t.Errorf("proportion below floor = %v, want 0", got)
	}
	if got := s.ProportionForLevelDB(6); got != 1 {
		t.Errorf("proportion above top = %v, want 1", got)
	}

	// Halfway between -40 and -20 lands halfway through that segment.
	want := 2*width + width/2
	if got := s.ProportionForLevelDB(-30); !almostEqual(got, want) {
		t.Errorf("ProportionForLevelDB(-30) = %v, want %v", got, want)
	}
}

// TestScaleRoundTrip verifies LevelDBForProportion inverts
// ProportionForLevelDB for in-range levels.
func TestScaleRoundTrip(t *testing.T) {
	s, err := NewScale(-96, []float64{-60, -40, -20, -10, -6, -3, 0})
	if err != nil {
		t.Fatalf("NewScale failed: %v", err)
	}

	for _, db := range []float64{-95, -60, -50, -33.3, -20, -12, -6, -1.5, 0} {
		p := s.ProportionForLevelDB(db)
		back := s.LevelDBForProportion(p)
		if math.Abs(back-db) > 1e-6 {
			t.Errorf("round trip of %v dB: proportion %v maps back to %v", db, p, back)
		}
	}

	if got := s.LevelDBForProportion(-0.5); got != -96 {
		t.Errorf("LevelDBForProportion(-0.5) = %v, want floor", got)
	}
	if got := s.LevelDBForProportion(1.5); got != 0 {
		t.Errorf("LevelDBForProportion(1.5) = %v, want top", got)
	}
}

// TestScaleProportionForLevel verifies linear levels are rectified and
// converted through the dB mapping.
func TestScaleProportionForLevel(t *testing.T) {
	s := DefaultScale()

	if got := s.ProportionForLevel(0); got != 0 {
		t.Errorf("silence proportion = %v, want 0", got)
	}
	if got := s.ProportionForLevel(1); got != 1 {
		t.Errorf("full-scale proportion = %v, want 1", got)
	}
	if got := s.ProportionForLevel(2); got != 1 {
		t.Errorf("over-full-scale proportion = %v, want 1", got)
	}

	// Negative levels meter the same as positive ones.
	pos := s.ProportionForLevel(0.25)
	neg := s.ProportionForLevel(-0.25)
	if !almostEqual(pos, neg) {
		t.Errorf("proportion of -0.25 (%v) differs from 0.25 (%v)", neg, pos)
	}
}

// TestDefaultScale verifies the single-segment default scale maps dB
// linearly from -96 to 0.
func TestDefaultScale(t *testing.T) {
	s := DefaultScale()

	if got := s.MinusInfinityDB(); got != DefaultMinusInfinityDB {
		t.Errorf("MinusInfinityDB = %v, want %v", got, DefaultMinusInfinityDB)
	}
	if got := s.ProportionForLevelDB(-48); !almostEqual(got, 0.5) {
		t.Errorf("ProportionForLevelDB(-48) = %v, want 0.5", got)
	}
	if got := len(s.Divisions()); got != 0 {
		t.Errorf("default scale has %d divisions, want 0", got)
	}
}

// TestScaleDivisionsCopy verifies mutating the returned slice does not
// affect the scale.
func TestScaleDivisionsCopy(t *testing.T) {
	s, err := NewScale(-96, []float64{-20, 0})
	if err != nil {
		t.Fatalf("NewScale failed: %v", err)
	}

	divs := s.Divisions()
	divs[0] = -50
	if got := s.Divisions()[0]; got != -20 {
		t.Errorf("division mutated through returned slice: %v", got)
	}
}
