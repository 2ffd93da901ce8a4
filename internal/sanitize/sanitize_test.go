package sanitize

import (
	"strings"
	"testing"
)

func TestStripRemovesPrivateTags(t *testing.T) {
	in := "before <private>secret stuff</private> after"
	got := Strip(in)
	want := "before  after"
	if got != want {
		t.Fatalf("Strip() = %q, want %q", got, want)
	}
}

func TestStripRemovesAllTagTypes(t *testing.T) {
	in := "<no-memory>a</no-memory> keep <secret>b</secret>"
	got := Strip(in)
	if strings.Contains(got, "a") || strings.Contains(got, "b") {
		t.Fatalf("Strip() left tagged content: %q", got)
	}
	if !strings.Contains(got, "keep") {
		t.Fatalf("Strip() removed untagged content: %q", got)
	}
}

func TestStripLeavesUnterminatedTags(t *testing.T) {
	in := "before <private>never closed"
	got := Strip(in)
	if got != in {
		t.Fatalf("Strip() altered unterminated tag: %q", got)
	}
}

func TestStripCapsOccurrences(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxTagOccurrences+10; i++ {
		b.WriteString("<private>x</private>")
	}
	got := Strip(b.String())
	if strings.Count(got, "<private>") != 10 {
		t.Fatalf("expected 10 tags left unstripped past the cap, got %d", strings.Count(got, "<private>"))
	}
}

func TestStripCapIsSharedAcrossTagTypes(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxTagOccurrences; i++ {
		b.WriteString("<private>x</private>")
	}
	b.WriteString("<secret>y</secret>")
	got := Strip(b.String())
	if strings.Count(got, "<private>") != 0 {
		t.Fatalf("expected all private tags stripped, got %q", got)
	}
	if strings.Count(got, "<secret>") != 1 {
		t.Fatalf("expected the secret tag to be left unstripped once the shared cap was exhausted, got %q", got)
	}
}
