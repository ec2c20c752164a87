// Package segment splits post HTML into sections anchored by H2 and H3 headings.
package segment

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxExcerptRunes caps the body text carried by a Section.
const MaxExcerptRunes = 500

// Kind is the heading level that anchors a section.
type Kind string

const (
	H2 Kind = "h2"
	H3 Kind = "h3"
)

// Section is a heading plus the text that follows it up to the next heading.
// Offsets are byte offsets into the source HTML: the section spans
// [StartOffset, EndOffset) and its body starts at BodyOffset, right after
// the heading's closing tag.
type Section struct {
	Kind        Kind   `json:"type"`
	HeadingText string `json:"text"`
	BodyExcerpt string `json:"content"`
	StartOffset int    `json:"start"`
	BodyOffset  int    `json:"body_start"`
	EndOffset   int    `json:"end"`
	// Images counts <img> elements already in the body.
	Images int `json:"images"`
}

type heading struct {
	kind       Kind
	start      int
	innerStart int
	innerEnd   int
	end        int
}

// Segment returns the H2/H3 sections of src in document order. Both heading
// levels share one position-ordered stream, so a body always ends where the
// next heading of either level begins. A document without headings yields an
// empty slice.
func Segment(src string) []Section {
	headings := findHeadings(src)
	sort.SliceStable(headings, func(i, j int) bool {
		return headings[i].start < headings[j].start
	})

	sections := make([]Section, 0, len(headings))
	for i, h := range headings {
		end := len(src)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		sections = append(sections, Section{
			Kind:        h.kind,
			HeadingText: PlainText(src[h.innerStart:h.innerEnd]),
			BodyExcerpt: Excerpt(src[h.end:end], MaxExcerptRunes),
			Images:      countImages(src[h.end:end]),
			StartOffset: h.start,
			BodyOffset:  h.end,
			EndOffset:   end,
		})
	}
	return sections
}

// findHeadings walks the token stream once, summing raw token lengths to keep
// byte offsets. It closes headings the way an HTML5 parser does: any h1-h6
// end tag ends the open heading, and an h1-h6 start tag ends it at that tag.
// A heading still open at EOF is dropped.
func findHeadings(src string) []heading {
	z := html.NewTokenizer(strings.NewReader(src))
	var (
		out    []heading
		open   *heading
		offset int
	)
	closeAt := func(innerEnd, end int) {
		open.innerEnd = innerEnd
		open.end = end
		out = append(out, *open)
		open = nil
	}
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if !isHeadingTag(name) {
				continue
			}
			if open != nil {
				closeAt(start, start)
			}
			if k, ok := headingKind(name); ok {
				open = &heading{kind: k, start: start, innerStart: offset}
			}
		case html.EndTagToken:
			if open == nil {
				continue
			}
			if name, _ := z.TagName(); isHeadingTag(name) {
				closeAt(start, offset)
			}
		}
	}
	return out
}

func isHeadingTag(name []byte) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

func headingKind(name []byte) (Kind, bool) {
	switch string(name) {
	case "h2":
		return H2, true
	case "h3":
		return H3, true
	}
	return "", false
}

// countImages reports how many <img> elements a body fragment holds.
func countImages(fragment string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return 0
	}
	return doc.Find("img").Length()
}

// Excerpt returns the plain text of an HTML fragment cut to max runes.
func Excerpt(fragment string, max int) string {
	text := PlainText(fragment)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max]))
}

// PlainText strips every tag from an HTML fragment, treating each tag as a
// word break, decodes entities, and collapses whitespace. Script and style
// bodies are dropped. The result never contains '<' or '>'.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseSpaces(stripAngles(b.String()))
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if n := string(name); n == "script" || n == "style" {
				switch tt {
				case html.StartTagToken:
					skip++
				case html.EndTagToken:
					if skip > 0 {
						skip--
					}
				}
			}
			b.WriteByte(' ')
		}
	}
}

func stripAngles(s string) string {
	return strings.NewReplacer("<", " ", ">", " ").Replace(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
