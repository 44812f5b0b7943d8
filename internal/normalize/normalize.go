// Package normalize converts raw source entries into canonical posts. Every
// policy here is a total function: no entry, however sparse or malformed,
// fails normalization or produces an empty post.
package normalize

import (
	"crypto/sha1"
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"time"

	"teleread/internal/source"
	"teleread/internal/store"
)

// NoTextMarker replaces the text of entries that carry no recoverable
// content at all, so a media-only post still lands in the store.
const NoTextMarker = "[no text]"

var (
	lineBreakRe  = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
	markupTagRe  = regexp.MustCompile(`<[^>]+>`)
	hspaceRe     = regexp.MustCompile(`[ \t]+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	trailingIDRe = regexp.MustCompile(`(\d{1,12})\D*$`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

// Entry builds the canonical Post for one raw entry. The channel slug and
// the ingestion clock come from the caller; everything else is derived from
// the entry with the documented fallback chains.
func Entry(e source.RawEntry, slug string, now time.Time) store.Post {
	return store.Post{
		ChannelSlug: slug,
		MsgID:       MessageID(e),
		DateISO:     isoZ(entryTime(e, now)),
		Text:        Text(e),
	}
}

// Text extracts the display text: first non-empty stripped content block,
// else stripped summary, else stripped title. Entries empty on all three get
// a title/link join, and as a last resort the fixed marker.
func Text(e source.RawEntry) string {
	for _, block := range e.Content {
		if t := StripMarkup(block.Value); t != "" {
			return t
		}
	}
	if t := StripMarkup(e.Summary); t != "" {
		return t
	}
	if t := StripMarkup(e.Title); t != "" {
		return t
	}

	var parts []string
	if t := StripMarkup(e.Title); t != "" {
		parts = append(parts, t)
	}
	if e.Link != "" {
		parts = append(parts, e.Link)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " | ")
	}
	return NoTextMarker
}

// StripMarkup reduces an HTML-ish fragment to plain text: line-break markup
// becomes a newline, remaining tags are removed, the four basic entities are
// decoded, horizontal whitespace runs collapse to one space, and runs of
// three or more newlines collapse to two.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = markupTagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = hspaceRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// MessageID derives a stable 64-bit id for the entry. A real numeric id is
// recovered from the trailing digits of the first non-empty of id/guid/link;
// entries without one get a deterministic 48-bit digest so no entry is ever
// dropped for want of an identifier.
func MessageID(e source.RawEntry) int64 {
	var cand string
	for _, c := range []string{e.ID, e.GUID, e.Link} {
		if c != "" {
			cand = c
			break
		}
	}
	if cand == "" {
		return digestID(fingerprint(e))
	}
	if m := trailingIDRe.FindStringSubmatch(cand); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return id
		}
	}
	return digestID(cand)
}

// digestID maps an arbitrary string to a 48-bit integer: the first 6 bytes
// of its SHA-1, read big-endian. Collisions are a theoretical risk only.
func digestID(s string) int64 {
	sum := sha1.Sum([]byte(s))
	var buf [8]byte
	copy(buf[2:], sum[:6])
	return int64(binary.BigEndian.Uint64(buf[:]))
}

// fingerprint is a deterministic serialization of the whole entry, used as
// digest input when no identifier field is present.
func fingerprint(e source.RawEntry) string {
	var b strings.Builder
	for _, f := range []string{e.ID, e.GUID, e.Link, e.Title, e.Summary} {
		b.WriteString(f)
		b.WriteByte(0x1f)
	}
	for _, block := range e.Content {
		b.WriteString(block.Type)
		b.WriteByte(0x1f)
		b.WriteString(block.Value)
		b.WriteByte(0x1f)
	}
	if e.Published != nil {
		b.WriteString(e.Published.UTC().Format(time.RFC3339Nano))
	}
	b.WriteByte(0x1f)
	if e.Updated != nil {
		b.WriteString(e.Updated.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

func entryTime(e source.RawEntry, now time.Time) time.Time {
	if e.Published != nil && !e.Published.IsZero() {
		return *e.Published
	}
	if e.Updated != nil && !e.Updated.IsZero() {
		return *e.Updated
	}
	return now
}

// isoZ renders t as RFC 3339 UTC at second precision. Fixed-width output
// keeps lexicographic order in the store equal to chronological order.
func isoZ(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
