package message

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the inline formatting subset the Telegram Bot API accepts
// for parse_mode=HTML. Anything else is unwrapped, keeping its text.
var allowedTags = map[string]bool{
	"b": true, "strong": true,
	"i": true, "em": true,
	"u": true, "ins": true,
	"s": true, "strike": true, "del": true,
	"a":    true,
	"code": true, "pre": true,
}

// sanitizeTelegramHTML reduces rendered HTML to Telegram's tag subset.
// Block structure is flattened: paragraphs become blank-line separated text,
// list items become dashed lines.
func sanitizeTelegramHTML(in string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(in), body)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, n := range nodes {
		writeNode(&b, n)
	}

	out := strings.TrimSpace(b.String())
	// Collapse the separator runs flattening can produce.
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out, nil
}

func writeNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		name := n.Data
		if allowedTags[name] {
			b.WriteString("<")
			b.WriteString(name)
			if name == "a" {
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						b.WriteString(` href="`)
						b.WriteString(html.EscapeString(attr.Val))
						b.WriteString(`"`)
					}
				}
			}
			b.WriteString(">")
			writeChildren(b, n)
			b.WriteString("</")
			b.WriteString(name)
			b.WriteString(">")
			return
		}

		switch name {
		case "br":
			b.WriteString("\n")
		case "p", "div", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
			writeChildren(b, n)
			b.WriteString("\n\n")
		case "li":
			b.WriteString("- ")
			writeChildren(b, n)
			b.WriteString("\n")
		case "ul", "ol":
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
					continue
				}
				writeNode(b, c)
			}
			b.WriteString("\n")
		default:
			writeChildren(b, n)
		}
	default:
		writeChildren(b, n)
	}
}

func writeChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(b, c)
	}
}
