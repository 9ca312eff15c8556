package utils

import "testing"

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:30", 0, true},
		{"+1:30", 0, true},
		{"-1:00", 0, true},
		{"01:+5", 0, true},
		{" 1:30", 0, true},
		{"ab:cd", 0, true},
		{"0930", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseClock(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, m := range []int{0, 61, 570, 1439} {
		got, err := ParseClock(FormatClock(m))
		if err != nil || got != m {
			t.Fatalf("round trip of %d gave %d, %v", m, got, err)
		}
	}
}
