package moderation_test

import (
	"context"
	"testing"

	"github.com/PabloGalante/campfire/internal/adapters/moderation"
)

func TestBlocklist(t *testing.T) {
	b := moderation.NewBlocklist([]string{"Darnit", " ", "heck"})
	ctx := context.Background()

	cases := map[string]bool{
		"Rho the Ranger":    true,
		"darnit":            false,
		"Oh, HECK!":         false,
		"checkpoint heckle": true,
		"":                  true,
	}
	for text, want := range cases {
		got, err := b.Check(ctx, text)
		if err != nil {
			t.Fatalf("Check(%q) failed: %v", text, err)
		}
		if got != want {
			t.Errorf("Check(%q) = %v, want %v", text, got, want)
		}
	}
}
