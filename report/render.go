package report

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts a Markdown report to HTML.
func RenderHTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert(markdown, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PlainText flattens a rendered HTML report to its text content, for
// terminal output.
func PlainText(doc []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "li", "h1", "h2", "h3", "tr", "br":
				sb.WriteString("\n")
			case "td", "th":
				sb.WriteString("\t")
			}
		}
	}
	walk(root)
	return strings.TrimSpace(sb.String()), nil
}
