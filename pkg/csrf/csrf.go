// Package csrf reads the anti-forgery token that state-changing requests
// must carry.
package csrf

import (
	"github.com/qaplatform/qaglue/pkg/dom"
	"golang.org/x/net/html"
)

// HeaderName is the request header the backend checks.
const HeaderName = "X-CSRFToken"

// DefaultMetaName is the <meta name> the page embeds the token under.
const DefaultMetaName = "csrf-token"

// TokenSource yields the current anti-forgery token.
type TokenSource interface {
	Token() string
}

// Static is a fixed token.
type Static string

// Token returns the fixed token.
func (s Static) Token() string { return string(s) }

// MetaSource reads the token from a page's <meta> element on every call,
// so a token rotated by a page update is picked up.
type MetaSource struct {
	Doc  *dom.Document
	Name string
}

// FromMeta returns a MetaSource for DefaultMetaName.
func FromMeta(doc *dom.Document) *MetaSource {
	return &MetaSource{Doc: doc, Name: DefaultMetaName}
}

// Token returns the meta content, or "" when the page has no such meta.
func (m *MetaSource) Token() string {
	name := m.Name
	if name == "" {
		name = DefaultMetaName
	}
	var token string
	m.Doc.View(func(root *html.Node) {
		token = Lookup(root, name)
	})
	return token
}

// Lookup finds <meta name=name> under root and returns its content.
func Lookup(root *html.Node, name string) string {
	meta := dom.QueryFirst(root, dom.And(dom.ByTag("meta"), dom.ByAttr("name", name)))
	v, _ := dom.Attr(meta, "content")
	return v
}
