package llm

import "testing"

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		in      string
		allowed bool
		wantErr bool
	}{
		{"ALLOW", true, false},
		{" allow.\n", true, false},
		{"BLOCK", false, false},
		{"maybe", false, true},
	}
	for _, c := range cases {
		got, err := parseVerdict(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("parseVerdict(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if got != c.allowed {
			t.Errorf("parseVerdict(%q) = %v, want %v", c.in, got, c.allowed)
		}
	}
}
