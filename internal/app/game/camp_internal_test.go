package game

import "testing"

func TestParseCampChoice(t *testing.T) {
	cases := []struct {
		in     string
		action campAction
		arg    string
	}{
		{"quest", campQuest, ""},
		{"Quest the sunken bell", campQuest, "the sunken bell"},
		{"start quest", campQuest, ""},
		{"talk to Ysolde", campTalk, "Ysolde"},
		{"speak with the smith", campTalk, "the smith"},
		{"talk", campChat, ""},
		{"I warm my hands", campChat, ""},
		{"", campChat, ""},
	}
	for _, c := range cases {
		action, arg := parseCampChoice(c.in)
		if action != c.action || arg != c.arg {
			t.Errorf("parseCampChoice(%q) = (%v, %q), want (%v, %q)", c.in, action, arg, c.action, c.arg)
		}
	}
}

func TestIsFarewell(t *testing.T) {
	for text, want := range map[string]bool{
		"Goodbye!":          true,
		"ok, bye":           true,
		"I'll leave now.":   true,
		"Tell me about bys": false,
		"hello":             false,
	} {
		if got := isFarewell(text); got != want {
			t.Errorf("isFarewell(%q) = %v, want %v", text, got, want)
		}
	}
}
