package audit

import "testing"

func TestRecentLimit(t *testing.T) {
	cases := map[int]int{
		-3:        50,
		0:         50,
		1:         1,
		500:       500,
		501:       500,
		100000000: 500,
	}
	for requested, want := range cases {
		if got := RecentLimit(requested); got != want {
			t.Errorf("RecentLimit(%d) = %d, want %d", requested, got, want)
		}
	}
}
