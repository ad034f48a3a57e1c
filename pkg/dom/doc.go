// Package dom holds an in-memory HTML page and the small set of element
// operations the rest of qaglue needs: class toggling, data attributes,
// text content, and selector-like matching.
//
// A Document serializes every read and write through View and Update.
// Handlers that mutate the page never touch the node tree outside of an
// Update call, so the page has a single writer at any instant, the same
// guarantee a browser event loop provides.
//
//	doc, err := dom.ParseString(`<div class="votes">...</div>`)
//	doc.Update(func(root *html.Node) {
//	    for _, btn := range dom.QueryAll(root, dom.ByClass("vote-btn")) {
//	        dom.RemoveClass(btn, "active")
//	    }
//	})
package dom
