package utils

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.344, 2.34},
		{2.346, 2.35},
		{-1.236, -1.24},
		{7.199999, 7.2},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Fatalf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConvertAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		from, to string
		rate     float64
		want     float64
		wantErr  bool
	}{
		{"same currency", 600, "INR", "inr", 0.012, 600, false},
		{"inr to usd", 600, "INR", "USD", 0.012, 7.2, false},
		{"usd to inr", 12, "USD", "INR", 0.012, 1000, false},
		{"unsupported", 10, "INR", "EUR", 0.012, 0, true},
		{"bad rate", 10, "INR", "USD", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertAmount(tt.amount, tt.from, tt.to, tt.rate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMinorUnits(t *testing.T) {
	if got := MinorUnits(660); got != 66000 {
		t.Fatalf("MinorUnits(660) = %d", got)
	}
	if got := MinorUnits(7.2); got != 720 {
		t.Fatalf("MinorUnits(7.2) = %d", got)
	}
}
