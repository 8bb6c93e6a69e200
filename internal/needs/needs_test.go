package needs

import (
	"math"
	"testing"
)

func TestBandForIsTotal(t *testing.T) {
	counts := map[Band]int{}
	prev := BandCritical
	for p := 0; p <= 100; p++ {
		b := BandFor(p)
		if b < prev {
			t.Fatalf("band decreased at %d: %v after %v", p, b, prev)
		}
		if b.String() == "unknown" {
			t.Fatalf("no band for %d", p)
		}
		counts[b]++
		prev = b
	}

	want := map[Band]int{
		BandCritical: 20,
		BandLow:      20,
		BandMedium:   20,
		BandHigh:     20,
		BandFull:     21,
	}
	for b, n := range want {
		if counts[b] != n {
			t.Errorf("band %s covers %d percentages, want %d", b, counts[b], n)
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		p    int
		want Band
	}{
		{0, BandCritical},
		{19, BandCritical},
		{20, BandLow},
		{39, BandLow},
		{40, BandMedium},
		{59, BandMedium},
		{60, BandHigh},
		{79, BandHigh},
		{80, BandFull},
		{100, BandFull},
	}
	for _, tt := range tests {
		if got := BandFor(tt.p); got != tt.want {
			t.Errorf("BandFor(%d) = %s, want %s", tt.p, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0.9, 90},
		{0.4, 40},
		{0.826, 83},
		{0.004, 0},
		{-0.2, 0},
		{1.7, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.v); got != tt.want {
			t.Errorf("Percent(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
	if BandOf(0.9) != BandFull {
		t.Error("0.9 should be full")
	}
	if BandOf(0.4) != BandMedium {
		t.Error("0.4 should be medium")
	}
}

func TestCompare(t *testing.T) {
	c := Compare(0.65, 0.82)
	if c.Points != 17.0 {
		t.Errorf("points = %v, want 17.0", c.Points)
	}
	if c.Direction != Increase {
		t.Errorf("direction = %s, want increase", c.Direction)
	}
	if c.String() != "↑ 17.0%" {
		t.Errorf("String() = %q", c.String())
	}

	d := Compare(0.5, 0.4249)
	if d.Direction != Decrease {
		t.Errorf("direction = %s, want decrease", d.Direction)
	}
	if d.Points != 7.5 {
		t.Errorf("points = %v, want 7.5", d.Points)
	}
	if d.String() != "↓ 7.5%" {
		t.Errorf("String() = %q", d.String())
	}

	z := Compare(0.3, 0.3)
	if z.Direction != Increase || z.Points != 0 {
		t.Errorf("zero change = %+v, want increase 0", z)
	}
}
