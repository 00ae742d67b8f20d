package tokens_test

import (
	"context"
	"testing"

	"github.com/PabloGalante/campfire/internal/adapters/storage/memory"
	"github.com/PabloGalante/campfire/internal/app/tokens"
	"github.com/PabloGalante/campfire/internal/domain"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"hi", 1},
		{"dragon", 2},
		{"hi, you!", 4},
		{"1234 5678", 2},
	}
	for _, c := range cases {
		if got := tokens.Estimate(c.text); got != c.want {
			t.Errorf("Estimate(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestCountUsesCachedTag(t *testing.T) {
	log := memory.NewLogStore()
	c := tokens.NewCounter(log)
	m := &domain.Message{Text: "a very long text that would cost more", Tags: []domain.Tag{domain.TokenCountTag(3)}}

	n, err := c.Count(context.Background(), m)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected cached 3, got %d", n)
	}
}

func TestCountAnnotatesOnMiss(t *testing.T) {
	ctx := context.Background()
	log := memory.NewLogStore()
	m, err := log.Append(ctx, "s1", domain.Draft{Role: domain.RoleUser, Text: "hello there"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	n, err := tokens.NewCounter(log).Count(ctx, m)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}

	stored, _ := log.Get(ctx, "s1", m.Index)
	if cached, ok := stored.CachedTokens(); !ok || cached != n {
		t.Fatalf("expected stored cache %d, got %d (ok=%v)", n, cached, ok)
	}
}

func TestCountUnknownMessageFails(t *testing.T) {
	m := &domain.Message{SessionID: "s1", Index: 7, Text: "ghost"}
	if _, err := tokens.NewCounter(memory.NewLogStore()).Count(context.Background(), m); err == nil {
		t.Fatalf("expected error annotating a missing message")
	}
}
