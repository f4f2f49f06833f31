package takeout

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

type predicate func(*html.Node) bool

func isElement(name string) predicate {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func hasClass(class string) predicate {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		return slices.Contains(strings.Fields(attr(n, "class")), class)
	}
}

func isTelLink(n *html.Node) bool {
	return isElement("a")(n) && (hasClass("tel")(n) || strings.HasPrefix(attr(n, "href"), "tel:"))
}

func isTagLink(n *html.Node) bool {
	return isElement("a")(n) && slices.Contains(strings.Fields(attr(n, "rel")), "tag")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, match predicate) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns matching descendants in document order. It does not
// descend into matches.
func findAll(n *html.Node, match predicate) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

// textContent flattens a subtree to text, turning <br> into newlines.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
