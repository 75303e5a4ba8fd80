// Package sanitize turns user-authored rich text into plain text suitable for CSV export
// and context headers.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// blockElements break words when stripped; inline elements are removed without a separator.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true,
}

// skippedElements have their content dropped entirely.
var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Template: true,
}

// normalizer maps non-breaking spaces to ordinary spaces and composes to NFC.
// Chained transformers hold buffers, so each call builds its own.
func normalizer() transform.Transformer {
	return transform.Chain(
		runes.Map(func(r rune) rune {
			if r == '\u00a0' || r == '\u202f' {
				return ' '
			}
			return r
		}),
		norm.NFC,
	)
}

// Text strips markup from s and decodes HTML entities. Malformed markup is handled on a
// best-effort basis and never fails.
func Text(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF; strings.Reader never yields other read errors.
			return finish(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skippedElements[a] && tt == html.StartTagToken {
				skipDepth++
				continue
			}
			if blockElements[a] {
				wordBreak(&b)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skippedElements[a] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockElements[a] {
				wordBreak(&b)
			}
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

func wordBreak(b *strings.Builder) {
	s := b.String()
	if s == "" {
		return
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		return
	}
	b.WriteByte(' ')
}

func finish(s string) string {
	out, _, err := transform.String(normalizer(), s)
	if err != nil {
		out = s
	}
	return strings.TrimFunc(out, unicode.IsSpace)
}
