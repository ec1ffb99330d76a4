package source

import "testing"

func TestIndexPathSharding(t *testing.T) {
	cases := map[string]string{
		"a":     "1/a",
		"ab":    "2/ab",
		"abc":   "3/a/abc",
		"AbCd":  "Ab/Cd/AbCd",
		"aBcDe": "aB/cD/aBcDe",
	}
	for name, want := range cases {
		if got := indexPath(name); got != want {
			t.Errorf("indexPath(%q) = %q, want %q", name, got, want)
		}
	}
}
