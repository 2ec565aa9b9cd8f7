package site

import (
	"errors"
	"html/template"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the inline markup exported descriptions and comments may keep.
var allowedTags = map[atom.Atom]bool{
	atom.A:          true,
	atom.B:          true,
	atom.Strong:     true,
	atom.I:          true,
	atom.Em:         true,
	atom.U:          true,
	atom.S:          true,
	atom.Br:         true,
	atom.P:          true,
	atom.Blockquote: true,
	atom.Code:       true,
	atom.Pre:        true,
}

var voidTags = map[atom.Atom]bool{atom.Br: true}

// SafeMarkup re-emits rich text keeping only allowlisted inline tags. Anchors
// keep an http, https, or mailto href; every other attribute is dropped.
// Text is escaped and unclosed tags are closed.
func SafeMarkup(rich string) template.HTML {
	if !strings.ContainsAny(rich, "<&") {
		return template.HTML(template.HTMLEscapeString(rich))
	}
	var b strings.Builder
	var open []atom.Atom
	tokenizer := html.NewTokenizer(strings.NewReader(rich))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if err := tokenizer.Err(); err != nil && !errors.Is(err, io.EOF) {
				b.WriteString(html.EscapeString(string(tokenizer.Raw())))
			}
			break
		}
		token := tokenizer.Token()
		switch tt {
		case html.TextToken:
			b.WriteString(html.EscapeString(token.Data))
		case html.StartTagToken, html.SelfClosingTagToken:
			if !allowedTags[token.DataAtom] {
				continue
			}
			writeStartTag(&b, token)
			if !voidTags[token.DataAtom] && tt == html.StartTagToken {
				open = append(open, token.DataAtom)
			}
		case html.EndTagToken:
			if !allowedTags[token.DataAtom] || voidTags[token.DataAtom] {
				continue
			}
			idx := lastIndex(open, token.DataAtom)
			if idx < 0 {
				continue
			}
			for i := len(open) - 1; i >= idx; i-- {
				b.WriteString("</" + open[i].String() + ">")
			}
			open = open[:idx]
		}
	}
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i].String() + ">")
	}
	return template.HTML(b.String())
}

func writeStartTag(b *strings.Builder, token html.Token) {
	b.WriteString("<" + token.DataAtom.String())
	if token.DataAtom == atom.A {
		for _, attr := range token.Attr {
			if strings.EqualFold(attr.Key, "href") {
				if href, ok := safeHref(attr.Val); ok {
					b.WriteString(` href="` + html.EscapeString(href) + `" rel="nofollow"`)
				}
				break
			}
		}
	}
	b.WriteString(">")
}

func safeHref(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return u.String(), true
	default:
		return "", false
	}
}

func lastIndex(stack []atom.Atom, a atom.Atom) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == a {
			return i
		}
	}
	return -1
}
