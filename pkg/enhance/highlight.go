package enhance

import (
	"fmt"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
)

// highlight replaces the text of a code element with chroma token spans.
// The span classes are chroma's short class names, so any chroma CSS
// style sheet applies.
func highlight(code *html.Node) error {
	if v, _ := dom.Attr(code, "data-highlighted"); v == "true" {
		return nil
	}
	lang := languageOf(code)
	if lang == "" {
		return fmt.Errorf("no language class")
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return fmt.Errorf("unknown language %q", lang)
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, dom.Text(code))
	if err != nil {
		return fmt.Errorf("tokenise %s: %w", lang, err)
	}

	dom.RemoveChildren(code)
	for _, tok := range it.Tokens() {
		class := chroma.StandardTypes[tok.Type]
		if class == "" {
			code.AppendChild(&html.Node{Type: html.TextNode, Data: tok.Value})
			continue
		}
		span := dom.Element("span", "class", class)
		span.AppendChild(&html.Node{Type: html.TextNode, Data: tok.Value})
		code.AppendChild(span)
	}
	dom.AddClass(code, "chroma")
	dom.SetAttr(code, "data-highlighted", "true")
	return nil
}
