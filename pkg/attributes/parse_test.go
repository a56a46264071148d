package attributes

import (
	"math"
	"testing"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"12.5 m", 12.5, true},
		{"12m", 12, true},
		{"7,5", 7.5, true},
		{"40 ft", 12.192, true},
		{"40'", 12.192, true},
		{`12'6"`, 3.81, true},
		{"", 0, false},
		{"tall", 0, false},
		{"12 storeys", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLength(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"-90", 270, true},
		{"450", 90, true},
		{"NE", 45, true},
		{"ssw", 202.5, true},
		{"north", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDirection(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseCountAndAngle(t *testing.T) {
	if n, ok := ParseCount("2.6"); !ok || n != 3 {
		t.Errorf("ParseCount(2.6) = %d, %v", n, ok)
	}
	if _, ok := ParseCount("-1"); ok {
		t.Error("negative level count accepted")
	}
	if _, ok := ParseAngle("90"); ok {
		t.Error("vertical roof angle accepted")
	}
	if a, ok := ParseAngle("30°"); !ok || a != 30 {
		t.Errorf("ParseAngle(30°) = %v, %v", a, ok)
	}
}

func TestParseRoofShape(t *testing.T) {
	tests := map[string]RoofShape{
		"":            RoofFlat,
		"flat":        RoofFlat,
		"Skillion":    RoofSkillion,
		"gabled":      RoofGabled,
		"half-hipped": RoofHalfHipped,
		"onion":       RoofDome,
		"pyramidal":   RoofPyramidal,
		"gambrel":     RoofGambrel,
		"mansard":     RoofMansard,
		"round":       RoofRound,
		"sawtooth":    RoofFlat,
	}
	for in, want := range tests {
		if got := ParseRoofShape(in); got != want {
			t.Errorf("ParseRoofShape(%q) = %s, want %s", in, got, want)
		}
	}
}
