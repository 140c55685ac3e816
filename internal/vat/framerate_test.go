package vat

import (
	"errors"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"game", 15},
		{"film", 24},
		{"pal", 25},
		{"ntsc", 30},
		{"show", 48},
		{"palf", 50},
		{"ntscf", 60},
		{"FILM", 24},
		{" ntsc ", 30},
		{"12fps", 12},
		{"29.97fps", 29.97},
		{"120", 120},
		{"0.5", 0.5},
	}
	for _, tt := range tests {
		got, err := ParseFrameRate(tt.in)
		if err != nil {
			t.Errorf("ParseFrameRate(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFrameRateInvalid(t *testing.T) {
	for _, in := range []string{"", "fps", "cinema", "0", "-24", "0fps", "inf", "NaN", "24 fps x"} {
		if _, err := ParseFrameRate(in); !errors.Is(err, ErrInvalidFrameRate) {
			t.Errorf("ParseFrameRate(%q): expected ErrInvalidFrameRate, got %v", in, err)
		}
	}
}
