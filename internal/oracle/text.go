package oracle

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements never contribute readable text
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Form:     true,
	atom.Button:   true,
}

// blocks start a new line
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.Aside: true, atom.Header: true, atom.Blockquote: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Tr: true, atom.Table: true, atom.Pre: true, atom.Figcaption: true,
	atom.Br: true, atom.Hr: true, atom.Title: true,
}

// RenderText extracts the readable text of an HTML document: one line per
// block, runs of whitespace collapsed, blank lines dropped.
func RenderText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return collapseLines(rawHTML)
	}

	var b strings.Builder
	walkText(doc, &b)
	return collapseLines(b.String())
}

func walkText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Img {
			if alt := attr(n, "alt"); alt != "" {
				b.WriteString(" ")
				b.WriteString(alt)
				b.WriteString(" ")
			}
			return
		}
		if blocks[n.DataAtom] {
			b.WriteString("\n")
		}
	case html.TextNode:
		b.WriteString(squash(n.Data))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}

	if n.Type == html.ElementNode && blocks[n.DataAtom] {
		b.WriteString("\n")
	} else if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
		b.WriteString(" ")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// squash turns every whitespace run, newlines included, into one space.
// Line breaks come only from block elements.
func squash(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsSpace(r) {
		out = " " + out
	}
	if r, _ := utf8.DecodeLastRuneInString(s); unicode.IsSpace(r) {
		out += " "
	}
	return out
}

func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Truncate cuts s to at most maxChars runes; maxChars <= 0 means no limit
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars])
}
