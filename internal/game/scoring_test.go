package game

import "testing"

func TestPoints(t *testing.T) {
	cases := []struct {
		name     string
		elapsed  int64
		duration int64
		first    bool
		want     int
	}{
		{name: "late in round and first", elapsed: 118000, duration: 120000, first: true, want: 154},
		{name: "exactly at deadline", elapsed: 120000, duration: 120000, first: false, want: 100},
		{name: "after deadline floors bonus", elapsed: 150000, duration: 120000, first: false, want: 100},
		{name: "instant guess", elapsed: 0, duration: 120000, first: false, want: 340},
		{name: "partial second rounds down", elapsed: 1500, duration: 120000, first: true, want: 100 + 118*2 + 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Points(tc.elapsed, tc.duration, tc.first); got != tc.want {
				t.Fatalf("Points(%d, %d, %v) = %d, want %d", tc.elapsed, tc.duration, tc.first, got, tc.want)
			}
		})
	}
}
