package archive

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a paragraph in the plain-text rendering
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// paragraphBreak is a blank line inside a text node
var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// PlainText renders extracted section markup as text, one paragraph per
// line. Input without at least one element tag is returned unchanged, so
// plain text keeps its layout along with any "&" or "<" it contains.
func PlainText(s string) string {
	if !hasMarkup(s) {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var lines []string
	var line strings.Builder
	flush := func() {
		if text := strings.Join(strings.Fields(line.String()), " "); text != "" {
			lines = append(lines, text)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}

		if n.Type == html.TextNode {
			for i, part := range paragraphBreak.Split(n.Data, -1) {
				if i > 0 {
					flush()
				}
				line.WriteString(part)
			}
			line.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}

	walk(doc)
	flush()
	return strings.Join(lines, "\n")
}

// hasMarkup reports whether s contains an element tag
func hasMarkup(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}
