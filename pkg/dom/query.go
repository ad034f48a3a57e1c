package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Matcher decides whether an element node matches a selector.
type Matcher func(n *html.Node) bool

// ByClass matches elements carrying class c.
func ByClass(c string) Matcher {
	return func(n *html.Node) bool { return HasClass(n, c) }
}

// ByTag matches elements with the given tag name.
func ByTag(tag string) Matcher {
	return func(n *html.Node) bool { return n.Data == tag }
}

// ByAttr matches elements whose attribute key equals val.
func ByAttr(key, val string) Matcher {
	return func(n *html.Node) bool {
		v, ok := Attr(n, key)
		return ok && v == val
	}
}

// ByAttrPrefix matches elements whose attribute key starts with prefix.
func ByAttrPrefix(key, prefix string) Matcher {
	return func(n *html.Node) bool {
		v, ok := Attr(n, key)
		return ok && strings.HasPrefix(v, prefix)
	}
}

// ByData matches data-* attributes using dataset-style keys.
func ByData(key, val string) Matcher {
	return ByAttr("data-"+kebab(key), val)
}

// And matches when every matcher matches.
func And(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// Or matches when any matcher matches.
func Or(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if m(n) {
				return true
			}
		}
		return false
	}
}

// Child matches elements whose parent matches parent.
func Child(parent, self Matcher) Matcher {
	return func(n *html.Node) bool {
		return self(n) && n.Parent != nil && n.Parent.Type == html.ElementNode && parent(n.Parent)
	}
}

// Closest walks from n up through its ancestors and returns the first
// element matching m, including n itself.
func Closest(n *html.Node, m Matcher) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && m(n) {
			return n
		}
	}
	return nil
}

// QueryAll returns every descendant element of root matching m in
// document order.
func QueryAll(root *html.Node, m Matcher) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// QueryFirst returns the first descendant matching m, or nil.
func QueryFirst(root *html.Node, m Matcher) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && m(c) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	if root != nil {
		walk(root)
	}
	return found
}

// Body returns the <body> element, or nil.
func Body(root *html.Node) *html.Node {
	return QueryFirst(root, ByTag("body"))
}
