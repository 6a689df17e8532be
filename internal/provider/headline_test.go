package provider

import (
	"testing"
	"time"
)

func TestMentioningCoin(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []Headline{
		{Title: "Ethereum upgrade ships", PublishedAt: base},
		{Title: "ETHER-based tokens rally", PublishedAt: base.Add(time.Hour)},
		{Title: "Why $ETH holders are calm", PublishedAt: base.Add(2 * time.Hour)},
		{Title: "Bitcoin dominance climbs", PublishedAt: base.Add(3 * time.Hour)},
		{Title: "ethereum upgrade ships", PublishedAt: base.Add(-time.Hour)},
	}

	got := MentioningCoin(items, "Ethereum", "eth", 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 headlines, got %+v", got)
	}
	if got[0].Title != "Why $ETH holders are calm" {
		t.Fatalf("expected newest first, got %q", got[0].Title)
	}
	if got[1].Title != "Ethereum upgrade ships" {
		t.Fatalf("unexpected second headline %q", got[1].Title)
	}

	if limited := MentioningCoin(items, "Ethereum", "ETH", 1); len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestSanitizeAndStrip(t *testing.T) {
	if got := sanitizeText("  a \n b\r\nc ", 0); got != "a b c" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := sanitizeText("abcdef", 3); got != "abc" {
		t.Fatalf("expected truncation, got %q", got)
	}
	if got := htmlStrip("<p>hello <b>world</b></p>"); got != "hello world" {
		t.Fatalf("unexpected strip result %q", got)
	}
}
