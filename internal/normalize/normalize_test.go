package normalize

import (
	"strings"
	"testing"
	"time"

	"teleread/internal/source"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"simple tags", "<p>hello</p>", "hello"},
		{"nested tags", "<div><p>hello <b>world</b></p></div>", "hello world"},
		{"br to newline", "one<br>two<br/>three", "one\ntwo\nthree"},
		{"closing p to newline", "<p>one</p><p>two</p>", "one\ntwo"},
		{"entities", "a &amp; b &lt;c&gt;&nbsp;d", "a & b <c> d"},
		{"collapse spaces", "a    \t  b", "a b"},
		{"collapse blank lines", "a<br><br><br><br>b", "a\n\nb"},
		{"trim", "  <p> padded </p>  ", "padded"},
		{"empty", "", ""},
		{"tags only", "<img src='x'/>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.input); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestText_PriorityOrder(t *testing.T) {
	tests := []struct {
		name  string
		entry source.RawEntry
		want  string
	}{
		{
			"content block wins",
			source.RawEntry{
				Content: []source.ContentBlock{{Type: "text/html", Value: "<p>body</p>"}},
				Summary: "summary",
				Title:   "title",
			},
			"body",
		},
		{
			"empty block falls through to next block",
			source.RawEntry{
				Content: []source.ContentBlock{
					{Type: "text/html", Value: "<img/>"},
					{Type: "text/html", Value: "second"},
				},
			},
			"second",
		},
		{
			"summary when no content",
			source.RawEntry{Summary: "<b>summary</b>", Title: "title"},
			"summary",
		},
		{
			"title as last resort",
			source.RawEntry{Title: "title only"},
			"title only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.entry); got != tt.want {
				t.Errorf("Text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestText_Fallbacks(t *testing.T) {
	t.Run("title and link join", func(t *testing.T) {
		e := source.RawEntry{
			Title:   "<img src='x'/>",
			Link:    "https://t.me/chan/5",
			Content: []source.ContentBlock{{Value: "<video/>"}},
		}
		// Title strips to empty, so only the link survives the join.
		if got := Text(e); got != "https://t.me/chan/5" {
			t.Errorf("Text = %q", got)
		}
	})

	t.Run("marker when everything is empty", func(t *testing.T) {
		if got := Text(source.RawEntry{}); got != NoTextMarker {
			t.Errorf("Text = %q, want %q", got, NoTextMarker)
		}
	})

	t.Run("never empty", func(t *testing.T) {
		entries := []source.RawEntry{
			{},
			{Content: []source.ContentBlock{{Value: "<br>"}}},
			{Summary: "   "},
			{Link: "https://x/1"},
		}
		for _, e := range entries {
			if Text(e) == "" {
				t.Errorf("Text(%+v) is empty", e)
			}
		}
	})
}

func TestMessageID_TrailingDigits(t *testing.T) {
	tests := []struct {
		name  string
		entry source.RawEntry
		want  int64
	}{
		{"link digits", source.RawEntry{Link: "https://x/42"}, 42},
		{"id field wins over guid", source.RawEntry{ID: "msg-7", GUID: "guid-9"}, 7},
		{"guid before link", source.RawEntry{GUID: "https://t.me/chan/105", Link: "https://t.me/chan/9"}, 105},
		{"digits then trailing junk", source.RawEntry{ID: "post/123/view"}, 123},
		{"longest run capped at 12 digits", source.RawEntry{ID: "9999888877776666"}, 888877776666},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageID(tt.entry); got != tt.want {
				t.Errorf("MessageID = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageID_DigestFallback(t *testing.T) {
	noDigits := source.RawEntry{GUID: "no-numeric-identifier"}
	id := MessageID(noDigits)
	if id <= 0 || id >= 1<<48 {
		t.Fatalf("digest id %d outside 48-bit range", id)
	}
	if again := MessageID(noDigits); again != id {
		t.Fatalf("digest id not deterministic: %d then %d", id, again)
	}

	other := MessageID(source.RawEntry{GUID: "another-identifier"})
	if other == id {
		t.Fatalf("distinct candidates yielded the same id %d", id)
	}
}

func TestMessageID_NoIdentifierUsesWholeEntry(t *testing.T) {
	a := source.RawEntry{Title: "alpha", Summary: "first"}
	b := source.RawEntry{Title: "alpha", Summary: "second"}

	idA, idB := MessageID(a), MessageID(b)
	if idA == idB {
		t.Fatalf("entries with different fields collided on %d", idA)
	}
	if MessageID(a) != idA {
		t.Fatal("id for identical entry changed between calls")
	}
}

func TestEntry_Timestamps(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	published := time.Date(2026, 8, 1, 9, 30, 0, 500, time.FixedZone("MSK", 3*3600))
	updated := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry source.RawEntry
		want  string
	}{
		{"published converts to UTC", source.RawEntry{Published: &published}, "2026-08-01T06:30:00Z"},
		{"updated fallback", source.RawEntry{Updated: &updated}, "2026-08-02T10:00:00Z"},
		{"ingestion time fallback", source.RawEntry{}, "2026-08-30T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := Entry(tt.entry, "news", now)
			if post.DateISO != tt.want {
				t.Errorf("DateISO = %q, want %q", post.DateISO, tt.want)
			}
		})
	}
}

func TestEntry_Scenario(t *testing.T) {
	e := source.RawEntry{
		Content: []source.ContentBlock{{Type: "text/html", Value: "<p>Hello <b>world</b></p>"}},
		Link:    "https://x/42",
	}
	post := Entry(e, "news", time.Now())

	if post.Text != "Hello world" {
		t.Errorf("text = %q, want %q", post.Text, "Hello world")
	}
	if post.MsgID != 42 {
		t.Errorf("msg id = %d, want 42", post.MsgID)
	}
	if post.ChannelSlug != "news" {
		t.Errorf("slug = %q", post.ChannelSlug)
	}
	if post.DateISO == "" || !strings.HasSuffix(post.DateISO, "Z") {
		t.Errorf("date = %q, want RFC 3339 UTC", post.DateISO)
	}
}
