package verify

import (
	"strings"
	"testing"
)

func activeOpts() Options {
	return Options{Enabled: true, Threshold: 0.7, HasContactRegion: true, HasMessageRegion: true}
}

func TestDisabledAlwaysPasses(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	opt.Enabled = false
	if !Contact("alice", "garbage", opt) {
		t.Fatal("Contact must pass when verification is disabled")
	}
	if !Message("hello", "", opt) {
		t.Fatal("Message must pass when verification is disabled")
	}
}

func TestUnconfiguredRegionPasses(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	opt.HasContactRegion = false
	if !Contact("alice", "", opt) {
		t.Fatal("Contact must pass without a usable contact region")
	}
	opt = activeOpts()
	opt.HasMessageRegion = false
	if !Message("hello", "", opt) {
		t.Fatal("Message must pass without a usable message region")
	}
}

func TestEmptyRecognizedFailsClosed(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	if Contact("alice", "", opt) {
		t.Fatal("empty recognized contact text must fail")
	}
	if Message("some message body", "   ", opt) {
		t.Fatal("empty recognized message text must fail")
	}
}

func TestEmptyExpectedPasses(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	if !Contact("", "whatever", opt) {
		t.Fatal("no expected name means nothing to check")
	}
	if !Contact("  ", "", opt) {
		t.Fatal("whitespace-only expected name means nothing to check")
	}
}

func TestContactContainmentAndSimilarity(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	if !Contact("张三", "联系人: 张三 (在线)", opt) {
		t.Fatal("substring containment must pass")
	}
	if !Contact("alice cooper", "alice c0oper", opt) {
		t.Fatal("high similarity must pass")
	}
	if Contact("alice", "completely different", opt) {
		t.Fatal("unrelated text must fail")
	}
}

func TestMessageExactAlwaysPasses(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	opt.Threshold = 1.0
	m := "overdue notice for invoice 8841, please settle within 30 days"
	if !Message(m, m, opt) {
		t.Fatal("exact match must pass at any threshold <= 1")
	}
}

func TestMessageTailFragment(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	m := "a fairly long rendered notification message body ending distinctly"
	tail := string([]rune(m)[len([]rune(m))-14:])
	recognized := "noise noise noise " + tail
	if !Message(m, recognized, opt) {
		t.Fatal("tail fragment containment must pass even amid noise")
	}
}

func TestMessageHeadFragment(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	m := "invoice 991 overdue. the rest of this message was cut off by the capture region entirely"
	recognized := string([]rune(m)[:14]) + "…"
	if !Message(m, recognized, opt) {
		t.Fatal("head fragment containment must pass")
	}
}

func TestMessageSimilarityFallback(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	m := "please settle invoice 1234 before friday"
	// Garble characters throughout so neither anchor survives intact but
	// overall similarity stays high.
	recognized := strings.ReplaceAll(m, "e", "3")
	if !Message(m, recognized, opt) {
		t.Fatalf("similarity fallback should accept lightly garbled text")
	}
	if Message(m, "wholly unrelated recognized line", opt) {
		t.Fatal("unrelated text must fail")
	}
}

func TestShortMessageFragments(t *testing.T) {
	t.Parallel()
	opt := activeOpts()
	// Shorter than the anchor length: the fragment is the whole message.
	if !Message("short note", "prefix short note suffix", opt) {
		t.Fatal("short message containment must pass")
	}
}
