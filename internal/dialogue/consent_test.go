package dialogue

import "testing"

func TestNormalizeYesNo(t *testing.T) {
	cases := []struct {
		in   string
		want bool
		ok   bool
	}{
		{"yes", true, true},
		{"Yes please", true, true},
		{"go ahead", true, true},
		{"report it", true, true},
		{"네 신고해주세요", true, true},
		{"no", false, true},
		{"no need", false, true},
		{"don't report it", false, true},
		{"신고안해도 돼요", false, true},
		{"괜찮아요", false, true},
		{"maybe", false, false},
		{"", false, false},
		{"   ", false, false},
	}
	for _, tc := range cases {
		got, ok := NormalizeYesNo(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeYesNo(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeYesNoNegativeWinsOverAffirmativeSubstring(t *testing.T) {
	// "don't report it" contains the affirmative keyword "report it"; the
	// negative match must take precedence.
	got, ok := NormalizeYesNo("please don't report it")
	if !ok || got {
		t.Fatalf("NormalizeYesNo = (%v, %v), want refusal", got, ok)
	}
}
